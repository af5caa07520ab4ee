package bluetooth

import (
	"fmt"
	"time"
)

// BluetoothError 蓝牙策略栈错误类型
type BluetoothError struct {
	Code      int                    `json:"code"`      // 错误代码
	Message   string                 `json:"message"`   // 错误消息
	DeviceID  string                 `json:"device_id"` // 设备ID
	Operation string                 `json:"operation"` // 操作类型
	Timestamp time.Time              `json:"timestamp"` // 错误时间戳
	Cause     error                  `json:"-"`         // 原始错误
	Context   map[string]interface{} `json:"context"`   // 错误上下文
}

// Error 实现 error 接口
func (e *BluetoothError) Error() string {
	if e.DeviceID != "" {
		return fmt.Sprintf("bluetooth error [%d]: %s (device: %s, operation: %s)",
			e.Code, e.Message, e.DeviceID, e.Operation)
	}
	return fmt.Sprintf("bluetooth error [%d]: %s (operation: %s)",
		e.Code, e.Message, e.Operation)
}

// Unwrap 实现错误包装接口
func (e *BluetoothError) Unwrap() error {
	return e.Cause
}

// Is 实现错误比较接口，按错误代码比较
func (e *BluetoothError) Is(target error) bool {
	if t, ok := target.(*BluetoothError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithContext 添加错误上下文
func (e *BluetoothError) WithContext(key string, value interface{}) *BluetoothError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewBluetoothError 创建新的蓝牙错误
func NewBluetoothError(code int, message string) *BluetoothError {
	return &BluetoothError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		Context:   make(map[string]interface{}),
	}
}

// NewBluetoothErrorWithDevice 创建带设备信息的蓝牙错误
func NewBluetoothErrorWithDevice(code int, message, deviceID, operation string) *BluetoothError {
	return &BluetoothError{
		Code:      code,
		Message:   message,
		DeviceID:  deviceID,
		Operation: operation,
		Timestamp: time.Now(),
		Context:   make(map[string]interface{}),
	}
}

// WrapError 包装现有错误
func WrapError(err error, code int, message, deviceID, operation string) *BluetoothError {
	return &BluetoothError{
		Code:      code,
		Message:   message,
		DeviceID:  deviceID,
		Operation: operation,
		Timestamp: time.Now(),
		Cause:     err,
		Context:   make(map[string]interface{}),
	}
}

// 预定义的错误变量
var (
	// 通用错误
	ErrInvalidParameter = NewBluetoothError(ErrCodeInvalidParameter, "无效参数")
	ErrTimeout          = NewBluetoothError(ErrCodeTimeout, "操作超时")
	ErrNotFound         = NewBluetoothError(ErrCodeNotFound, "资源未找到")
	ErrAlreadyExists    = NewBluetoothError(ErrCodeAlreadyExists, "资源已存在")
	ErrNotSupported     = NewBluetoothError(ErrCodeNotSupported, "操作不支持")

	// 策略引擎相关错误
	ErrEngineNotRunning = NewBluetoothError(ErrCodeEngineNotRunning, "策略引擎未运行")
	ErrEngineRunning    = NewBluetoothError(ErrCodeEngineRunning, "策略引擎已在运行")
	ErrInboxClosed      = NewBluetoothError(ErrCodeInboxClosed, "事件收件箱已关闭")
	ErrMalformedEvent   = NewBluetoothError(ErrCodeMalformedEvent, "事件缺少必需字段")

	// 配置文件相关错误
	ErrProfileMissing = NewBluetoothError(ErrCodeProfileMissing, "配置文件子系统不可用")
	ErrPolicyWrite    = NewBluetoothError(ErrCodePolicyWrite, "策略写入失败")

	// 存储和事件源相关错误
	ErrHistoryLoad       = NewBluetoothError(ErrCodeHistoryLoad, "连接历史加载失败")
	ErrHistorySave       = NewBluetoothError(ErrCodeHistorySave, "连接历史保存失败")
	ErrSourceUnavailable = NewBluetoothError(ErrCodeSourceUnavailable, "事件源不可用")
)

// IsEngineError 检查是否为策略引擎相关错误
func IsEngineError(err error) bool {
	if btErr, ok := err.(*BluetoothError); ok {
		return btErr.Code >= 2000 && btErr.Code < 3000
	}
	return false
}

// IsProfileError 检查是否为配置文件相关错误
func IsProfileError(err error) bool {
	if btErr, ok := err.(*BluetoothError); ok {
		return btErr.Code >= 3000 && btErr.Code < 4000
	}
	return false
}

// IsStorageError 检查是否为存储相关错误
func IsStorageError(err error) bool {
	if btErr, ok := err.(*BluetoothError); ok {
		return btErr.Code >= 4000 && btErr.Code < 5000
	}
	return false
}

// IsSourceError 检查是否为事件源相关错误
func IsSourceError(err error) bool {
	if btErr, ok := err.(*BluetoothError); ok {
		return btErr.Code >= 5000 && btErr.Code < 6000
	}
	return false
}
