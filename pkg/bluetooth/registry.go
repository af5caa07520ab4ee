package bluetooth

import (
	"sync"
)

// ProfileRegistry 配置文件子系统注册表。子系统可能随时注册或注销，
// 注册表用读写锁保护；未注册的配置文件在决策时被静默跳过
type ProfileRegistry struct {
	mu       sync.RWMutex               // 读写锁
	services map[Profile]ProfileService // 已注册的子系统
}

// NewProfileRegistry 创建空注册表
func NewProfileRegistry() *ProfileRegistry {
	return &ProfileRegistry{
		services: make(map[Profile]ProfileService),
	}
}

// Register 注册配置文件子系统，重复注册覆盖旧实例
func (r *ProfileRegistry) Register(service ProfileService) {
	if service == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[service.Profile()] = service
}

// Unregister 注销配置文件子系统
func (r *ProfileRegistry) Unregister(profile Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.services, profile)
}

// Get 获取指定配置文件的子系统，未注册时第二个返回值为 false
func (r *ProfileRegistry) Get(profile Profile) (ProfileService, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	service, ok := r.services[profile]
	return service, ok
}

// Profiles 按固定顺序返回所有已注册的配置文件类型
func (r *ProfileRegistry) Profiles() []Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profiles := make([]Profile, 0, len(r.services))
	for _, p := range AllProfiles() {
		if _, ok := r.services[p]; ok {
			profiles = append(profiles, p)
		}
	}
	return profiles
}

// Count 返回已注册的子系统数量
func (r *ProfileRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.services)
}
