package watch

import (
	"strings"

	dbus "github.com/godbus/dbus/v5"
	"github.com/google/uuid"

	"github.com/GenesisOS-Staging/packages-modules-Bluetooth/pkg/bluetooth"
)

// BlueZ D-Bus 常量
const (
	bluezService    = "org.bluez"
	bluezRootPath   = dbus.ObjectPath("/")
	adapterIface    = "org.bluez.Adapter1"
	deviceIface     = "org.bluez.Device1"
	objManagerIface = "org.freedesktop.DBus.ObjectManager"
	propsIface      = "org.freedesktop.DBus.Properties"

	interfacesAddedSignal   = objManagerIface + ".InterfacesAdded"
	propertiesChangedSignal = propsIface + ".PropertiesChanged"
)

// addressFromObjectPath 从 BlueZ 设备对象路径提取设备地址。
// 路径形如 /org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF
func addressFromObjectPath(path dbus.ObjectPath) (bluetooth.Address, bool) {
	s := string(path)
	idx := strings.LastIndex(s, "/dev_")
	if idx < 0 {
		return "", false
	}
	mac := strings.ReplaceAll(s[idx+5:], "_", ":")
	if mac == "" {
		return "", false
	}
	return bluetooth.Address(mac), true
}

// adapterObjectPath 返回适配器名称对应的 BlueZ 对象路径
func adapterObjectPath(name string) dbus.ObjectPath {
	return dbus.ObjectPath("/org/bluez/" + name)
}

// deviceObjectPath 返回设备地址对应的 BlueZ 对象路径，
// 是 addressFromObjectPath 的逆变换
func deviceObjectPath(adapterName string, peer bluetooth.Address) dbus.ObjectPath {
	return dbus.ObjectPath("/org/bluez/" + adapterName + "/dev_" +
		strings.ReplaceAll(string(peer), ":", "_"))
}

// parseServiceUUIDs 把服务UUID字符串集合解析为UUID列表，
// 无法解析的条目被跳过
func parseServiceUUIDs(raw []string) []uuid.UUID {
	uuids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		parsed, err := uuid.Parse(s)
		if err != nil {
			continue
		}
		uuids = append(uuids, parsed)
	}
	return uuids
}

// uuidsFromVariant 从 D-Bus 变体中提取服务UUID列表
func uuidsFromVariant(v dbus.Variant) ([]uuid.UUID, bool) {
	raw, ok := v.Value().([]string)
	if !ok {
		return nil, false
	}
	return parseServiceUUIDs(raw), true
}

// boolFromVariant 从 D-Bus 变体中提取布尔值
func boolFromVariant(v dbus.Variant) (bool, bool) {
	b, ok := v.Value().(bool)
	return b, ok
}
