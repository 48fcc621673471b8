package report

import (
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/mem"
)

// Host describes the machine a benchmark ran on.
type Host struct {
	Platform string `json:"platform"`
	CPU      string `json:"cpu"`
	Cores    int    `json:"cores"`
	Memory   string `json:"memory"`
	GoArch   string `json:"goArch"`
}

// DescribeHost collects host information. Fields that cannot be read are
// left empty; it never fails.
func DescribeHost() Host {
	h := Host{
		Cores:  runtime.NumCPU(),
		GoArch: runtime.GOOS + "/" + runtime.GOARCH,
	}
	if info, err := host.Info(); err == nil {
		h.Platform = fmt.Sprintf("%s %s", info.Platform, info.PlatformVersion)
	}
	if cpus, err := cpu.Info(); err == nil && len(cpus) > 0 {
		h.CPU = cpus[0].ModelName
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		h.Memory = fmt.Sprintf("%d GB", vm.Total/1024/1024/1024)
	}
	return h
}

func (h Host) String() string {
	return fmt.Sprintf("%s, %s (%d cores), %s RAM, %s", h.Platform, h.CPU, h.Cores, h.Memory, h.GoArch)
}
