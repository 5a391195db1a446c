package app

import (
	"github.com/kart-io/version"
)

// BuildInfo 是 /version 返回的内容：服务名加上构建信息。
type BuildInfo struct {
	Service string `json:"service"`
	version.Info
}

// GetVersion returns the git version the binary was built from.
func GetVersion() string {
	return version.Get().GitVersion
}

// NewBuildInfo 返回指定服务的构建信息。
func NewBuildInfo(service string) BuildInfo {
	return BuildInfo{Service: service, Info: version.Get()}
}
