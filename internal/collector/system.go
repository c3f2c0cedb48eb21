package collector

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/jaypipes/ghw"
	"github.com/shirou/gopsutil/v3/host"

	"github.com/prabalesh/droidinsight/internal/models"
)

const unknown = "Unknown"

func (s *StatsCollector) getDeviceInfo(ctx context.Context) models.DeviceInfo {
	if s.deviceCache.IsValid() {
		return s.deviceCache.Get()
	}
	info := s.readDevice(ctx)
	info.Manufacturer = strings.ToUpper(info.Manufacturer)
	if info.ModelName == "" {
		info.ModelName = unknown
	}
	s.deviceCache.Set(info)
	return info
}

func readDeviceInfo(ctx context.Context) models.DeviceInfo {
	if info, ok := readAndroidProps(ctx); ok {
		return info
	}

	info := models.DeviceInfo{ModelName: unknown, Manufacturer: unknown, OSVersion: unknown}
	if product, err := ghw.Product(ghw.WithDisableWarnings()); err == nil {
		if known(product.Name) {
			info.ModelName = product.Name
		}
		if known(product.Vendor) {
			info.Manufacturer = product.Vendor
		}
	}
	if h, err := host.InfoWithContext(ctx); err == nil {
		info.OSVersion = formatHostVersion(h.Platform, h.PlatformVersion, h.KernelVersion)
	}
	return info
}

// readAndroidProps asks the property service for the build identity. ok is
// false when getprop is missing or reports nothing.
func readAndroidProps(ctx context.Context) (models.DeviceInfo, bool) {
	if _, err := exec.LookPath("getprop"); err != nil {
		return models.DeviceInfo{}, false
	}
	model := getprop(ctx, "ro.product.model")
	if model == "" {
		return models.DeviceInfo{}, false
	}
	return models.DeviceInfo{
		ModelName:    model,
		Manufacturer: getprop(ctx, "ro.product.manufacturer"),
		OSVersion: formatAndroidVersion(
			getprop(ctx, "ro.build.version.release"),
			getprop(ctx, "ro.build.version.sdk"),
		),
	}, true
}

func getprop(ctx context.Context, key string) string {
	out, err := exec.CommandContext(ctx, "getprop", key).Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func formatAndroidVersion(release, sdk string) string {
	return fmt.Sprintf("Android %s (SDK %s)", release, sdk)
}

func formatHostVersion(platform, version, kernel string) string {
	name := strings.TrimSpace(platform + " " + version)
	if name == "" {
		name = "Linux"
	}
	if kernel == "" {
		return name
	}
	return fmt.Sprintf("%s (kernel %s)", name, kernel)
}

func known(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !strings.EqualFold(v, "unknown")
}
