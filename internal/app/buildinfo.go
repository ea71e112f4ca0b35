package app

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

var (
	// Version is filled by ldflags in release builds.
	Version = "dev"
	// BuildDate is filled by ldflags in release builds.
	BuildDate = ""
)

func BuildVersion() string {
	version := strings.TrimSpace(Version)
	if version == "" {
		return "dev"
	}

	return version
}

func BuildDateYMD() string {
	raw := strings.TrimSpace(BuildDate)
	if raw == "" {
		return ""
	}

	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return parsed.Format("2006-01-02")
	}

	if len(raw) >= len("2006-01-02") {
		date := raw[:len("2006-01-02")]
		if _, err := time.Parse("2006-01-02", date); err == nil {
			return date
		}
	}

	return raw
}

func BuildVersionWithDate() string {
	version := BuildVersion()
	if buildDate := BuildDateYMD(); buildDate != "" {
		return fmt.Sprintf("%s (%s)", version, buildDate)
	}

	return version
}

// FirmwareVersion is the x.y.z version reported by APPVER and STATUS. Development and
// pre-release builds report DefaultFirmwareVersion.
func FirmwareVersion() string {
	version := normalizeSemver(BuildVersion())
	if !semver.IsValid(version) || semver.Prerelease(version) != "" {
		return DefaultFirmwareVersion
	}

	return strings.TrimPrefix(semver.Canonical(version), "v")
}

func normalizeSemver(version string) string {
	trimmed := strings.TrimSpace(version)
	if trimmed == "" {
		return ""
	}
	if !strings.HasPrefix(trimmed, "v") {
		trimmed = "v" + trimmed
	}

	return trimmed
}
