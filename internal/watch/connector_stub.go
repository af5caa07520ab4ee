//go:build !linux

package watch

import (
	"github.com/GenesisOS-Staging/packages-modules-Bluetooth/pkg/bluetooth"
)

// DBusConnector 非 Linux 平台的占位连接器
type DBusConnector struct{}

// NewDBusConnector 创建新的 D-Bus 连接器，非 Linux 平台不支持
func NewDBusConnector(adapterName string) (*DBusConnector, error) {
	return nil, bluetooth.NewBluetoothError(bluetooth.ErrCodeSourceUnavailable,
		"D-Bus 连接器仅支持 Linux 平台")
}

// ConnectProfile 非 Linux 平台不支持
func (dc *DBusConnector) ConnectProfile(peer bluetooth.Address, profile bluetooth.Profile) error {
	return bluetooth.NewBluetoothError(bluetooth.ErrCodeSourceUnavailable,
		"D-Bus 连接器仅支持 Linux 平台")
}
