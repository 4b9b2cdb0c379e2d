// Package sys provides methods to read system information
/*
 * Copyright (c) 2018-2021, NVIDIA CORPORATION. All rights reserved.
 */
package sys

import (
	"errors"
	"os"
	"runtime"
	"strconv"
	"strings"
)

const (
	rootProcess    = "/proc/self/cgroup"
	contCPULimit   = "/sys/fs/cgroup/cpu/cpu.cfs_quota_us"
	contCPUPeriod  = "/sys/fs/cgroup/cpu/cpu.cfs_period_us"
	hostLoadAvgPath = "/proc/loadavg"
)

// isContainerized returns true if the process is running inside a
// container (docker/lxc/k8s).
//
// https://stackoverflow.com/questions/20010199/how-to-determine-if-a-process-runs-inside-lxc-docker
func isContainerized() bool {
	b, err := os.ReadFile(rootProcess)
	if err != nil {
		return false
	}
	s := string(b)
	return strings.Contains(s, "docker") || strings.Contains(s, "lxc") || strings.Contains(s, "kube")
}

// containerNumCPU returns an approximate number of CPUs allocated to the
// container. An unset/negative quota means "unlimited": all hardware CPUs.
func containerNumCPU() (int, error) {
	quota, err := readOneInt(contCPULimit)
	if err != nil {
		return 0, err
	}
	if quota <= 0 {
		return runtime.NumCPU(), nil
	}
	period, err := readOneInt(contCPUPeriod)
	if err != nil {
		return 0, err
	}
	if period == 0 {
		return 0, errors.New("failed to read container CPU info")
	}
	approx := (quota + period - 1) / period
	if approx < 1 {
		approx = 1
	}
	return int(approx), nil
}

// LoadAverage returns the system load average.
func LoadAverage() (avg LoadAvg, err error) {
	b, err := os.ReadFile(hostLoadAvgPath)
	if err != nil {
		return avg, err
	}
	fields := strings.Fields(string(b))
	if len(fields) < 3 {
		return avg, errors.New("unexpected loadavg format")
	}
	if avg.One, err = strconv.ParseFloat(fields[0], 64); err != nil {
		return avg, err
	}
	if avg.Five, err = strconv.ParseFloat(fields[1], 64); err != nil {
		return avg, err
	}
	avg.Fifteen, err = strconv.ParseFloat(fields[2], 64)
	return avg, err
}

func readOneInt(path string) (int64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(strings.TrimSpace(string(b)), 10, 64)
}
