package collector

import (
	"sync"
	"time"

	"github.com/prabalesh/droidinsight/internal/models"
)

// static device identity changes only with an OS update
const DeviceCacheDuration = 24 * time.Hour

// DeviceCache holds the device identity between probes.
type DeviceCache struct {
	info     models.DeviceInfo
	infoTime time.Time

	mutex sync.RWMutex
}

func NewDeviceCache() *DeviceCache {
	return &DeviceCache{}
}

func (c *DeviceCache) IsValid() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.info.ModelName != "" && time.Since(c.infoTime) < DeviceCacheDuration
}

func (c *DeviceCache) Get() models.DeviceInfo {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.info
}

func (c *DeviceCache) Set(info models.DeviceInfo) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.info = info
	c.infoTime = time.Now()
}

func (c *DeviceCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.info = models.DeviceInfo{}
	c.infoTime = time.Time{}
}
