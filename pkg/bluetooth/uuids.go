package bluetooth

import (
	"github.com/google/uuid"
)

// 蓝牙标准服务类UUID，基础UUID后缀为 -0000-1000-8000-00805f9b34fb
var (
	UUIDHeadsetHS   = uuid.MustParse("00001108-0000-1000-8000-00805f9b34fb") // HSP 耳机服务
	UUIDAudioSink   = uuid.MustParse("0000110b-0000-1000-8000-00805f9b34fb") // A2DP 音频接收器
	UUIDAdvAudio    = uuid.MustParse("0000110d-0000-1000-8000-00805f9b34fb") // 高级音频分发
	UUIDPANU        = uuid.MustParse("00001115-0000-1000-8000-00805f9b34fb") // PAN 用户角色
	UUIDHandsfree   = uuid.MustParse("0000111e-0000-1000-8000-00805f9b34fb") // HFP 免提服务
	UUIDHIDService  = uuid.MustParse("00001124-0000-1000-8000-00805f9b34fb") // HID 人机接口
	UUIDHOGPService = uuid.MustParse("00001812-0000-1000-8000-00805f9b34fb") // HOGP 低功耗人机接口
	UUIDStreamCtrl  = uuid.MustParse("0000184e-0000-1000-8000-00805f9b34fb") // LE 音频流控制
	UUIDHearingAid  = uuid.MustParse("0000fdf0-0000-1000-8000-00805f9b34fb") // 助听器服务
)

// profileServiceClasses 每个配置文件在服务发现中对应的服务类UUID集合，
// 任一命中即认为对端支持该配置文件
var profileServiceClasses = map[Profile][]uuid.UUID{
	ProfileHeadset:       {UUIDHeadsetHS, UUIDHandsfree},
	ProfileA2DP:          {UUIDAudioSink, UUIDAdvAudio},
	ProfileHIDHost:       {UUIDHIDService, UUIDHOGPService},
	ProfileNetworkAccess: {UUIDPANU},
	ProfileHearingAid:    {UUIDHearingAid},
	ProfileLEAudio:       {UUIDStreamCtrl},
}

// ServiceClassUUIDs 返回配置文件对应的服务类UUID集合
func ServiceClassUUIDs(profile Profile) []uuid.UUID {
	return profileServiceClasses[profile]
}

// ContainsAnyUUID 判断已发现的UUID集合是否包含任一候选UUID
func ContainsAnyUUID(discovered []uuid.UUID, candidates []uuid.UUID) bool {
	for _, c := range candidates {
		for _, d := range discovered {
			if d == c {
				return true
			}
		}
	}
	return false
}

// SupportsProfile 判断已发现的UUID集合是否表明对端支持指定配置文件
func SupportsProfile(discovered []uuid.UUID, profile Profile) bool {
	return ContainsAnyUUID(discovered, profileServiceClasses[profile])
}
