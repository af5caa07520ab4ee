//go:build linux

package watch

import (
	"log/slog"

	dbus "github.com/godbus/dbus/v5"

	"github.com/GenesisOS-Staging/packages-modules-Bluetooth/pkg/bluetooth"
)

// DBusConnector 通过 BlueZ D-Bus 接口发起配置文件连接的连接器
type DBusConnector struct {
	bus         *dbus.Conn   // 系统总线连接
	adapterName string       // 适配器名称，用于构造设备对象路径
	logger      *slog.Logger // 日志记录器
}

// NewDBusConnector 创建新的 D-Bus 连接器
func NewDBusConnector(adapterName string) (*DBusConnector, error) {
	bus, err := dbus.SystemBus()
	if err != nil {
		return nil, bluetooth.WrapError(err, bluetooth.ErrCodeBusConnect,
			"无法连接系统总线", "", "new_connector")
	}
	return &DBusConnector{
		bus:         bus,
		adapterName: adapterName,
		logger:      slog.Default().With("component", "dbus_connector"),
	}, nil
}

// ConnectProfile 调用设备对象的 ConnectProfile 方法发起连接
func (dc *DBusConnector) ConnectProfile(peer bluetooth.Address, profile bluetooth.Profile) error {
	uuidStr, ok := connectUUIDs[profile]
	if !ok {
		return bluetooth.NewBluetoothError(bluetooth.ErrCodeNotSupported,
			"配置文件没有对应的连接UUID")
	}

	dc.logger.Debug("发起配置文件连接",
		"peer", peer.String(),
		"profile", profile.String(),
		"uuid", uuidStr)

	obj := dc.bus.Object(bluezService, deviceObjectPath(dc.adapterName, peer))
	if call := obj.Call(deviceIface+".ConnectProfile", 0, uuidStr); call.Err != nil {
		return bluetooth.WrapError(call.Err, bluetooth.ErrCodeSourceUnavailable,
			"配置文件连接请求失败", peer.String(), "connect_profile")
	}
	return nil
}
