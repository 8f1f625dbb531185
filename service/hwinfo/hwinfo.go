// Package hwinfo detects the local machine's hardware profile so that
// uploads from new machines can register a Hardware row without the operator
// filling the specs in by hand.
package hwinfo

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/dbtune-service/service/types"
)

// Detect builds a Hardware profile from the local machine.
func Detect() (*types.Hardware, error) {
	hw := &types.Hardware{
		Type: types.HardwareGeneric,
		Name: fmt.Sprintf("%s-%s", runtime.GOOS, runtime.GOARCH),
		CPU:  runtime.NumCPU(),
	}

	if cpuInfo, err := cpu.Info(); err == nil && len(cpuInfo) > 0 {
		hw.AdditionalSpecs = cpuInfo[0].ModelName
	}

	memInfo, err := mem.VirtualMemory()
	if err != nil {
		return nil, fmt.Errorf("failed to read memory info: %w", err)
	}
	hw.Memory = float64(memInfo.Total) / 1024 / 1024 / 1024 // GB

	storage, storageType, err := detectStorage()
	if err != nil {
		return nil, err
	}
	hw.Storage = storage
	hw.StorageType = storageType

	if err := hw.Validate(); err != nil {
		return nil, fmt.Errorf("detected hardware failed validation: %w", err)
	}
	return hw, nil
}

// detectStorage returns the sizes of the physical partitions in GB as a
// comma-separated list, plus a best-effort storage type label.
func detectStorage() (string, string, error) {
	partitions, err := disk.Partitions(false)
	if err != nil {
		return "", "", fmt.Errorf("failed to list disk partitions: %w", err)
	}

	var sizes []string
	for _, p := range partitions {
		usage, err := disk.Usage(p.Mountpoint)
		if err != nil {
			continue
		}
		gb := usage.Total / 1024 / 1024 / 1024
		if gb == 0 {
			continue
		}
		sizes = append(sizes, fmt.Sprintf("%d", gb))
	}
	if len(sizes) == 0 {
		// Validation rejects an empty list, so report a single unknown disk.
		sizes = []string{"0"}
	}

	storageType := "HDD"
	for _, p := range partitions {
		if strings.Contains(p.Device, "nvme") || strings.Contains(p.Device, "ssd") {
			storageType = "SSD"
			break
		}
	}

	return strings.Join(sizes, ","), storageType, nil
}
