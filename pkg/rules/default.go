package rules

// Definition is the uncompiled rule table of one category.
type Definition struct {
	Name   string
	Route  []Rule
	Filter []Rule
}

// Category names of the built-in table.
const (
	StartupTiming  = "startup_timing"
	FailedServices = "failed_services"
	Warnings       = "warnings"
	CriticalErrors = "critical_errors"
	HardwareDriver = "hardware_driver"
	Networking     = "networking"
	Authentication = "authentication"
	MountFS        = "mount_fs"
)

// Defaults returns the built-in boot log categories in their canonical order.
// Each call returns fresh slices.
func Defaults() []Definition {
	return []Definition{
		{
			Name:  StartupTiming,
			Route: substrings("Startup finished in", "Reached target"),
			Filter: regexes(
				"Start request repeated too quickly",
				"Timed out",
				"start-limit-hit",
				"watchdog",
				"job [0-9]+ failed",
			),
		},
		{
			Name:  FailedServices,
			Route: substrings("failed"),
			Filter: regexes(
				"Failed to start",
				"Dependency failed for",
				"Start request repeated too quickly",
				"start-limit-hit",
				"Timed out",
				"exited with status [1-9][0-9]*",
			),
		},
		{
			Name:  Warnings,
			Route: substrings("warn"),
			Filter: regexes(
				"deprecated",
				"low memory",
				"out of memory",
				"throttling",
				"overrun",
				"ACPI",
				"thermal warning",
				"overheat",
				"buffer overflow",
				"stack overflow",
			),
		},
		{
			Name:  CriticalErrors,
			Route: substrings("error", "critical"),
			Filter: regexes(
				"kernel panic",
				"panic:",
				"segfault",
				"BUG: unable to handle",
				"OOM killer invoked",
				"call trace",
				"kernel BUG",
			),
		},
		{
			Name:  HardwareDriver,
			Route: substrings("usb", "pci", "sda", "nvme", "driver", "firmware"),
			Filter: regexes(
				"driver .* failed to load",
				"firmware .* failed",
				"I/O error",
				"device not found",
				"timeout.*(usb|pci|sda|nvme)",
				"PCIe AER",
				"firmware: failed to load",
			),
		},
		{
			Name:  Networking,
			Route: substrings("network", "eth0", "wlan", "dhcp", "ip"),
			Filter: regexes(
				"Link is down",
				"DHCPDISCOVER.*timeout",
				"DNS lookup failure",
				"temporary failure in name resolution",
				"Network is unreachable",
				"IP conflict",
				"duplicate IP",
				"device eth[0-9]+: no carrier",
				"interface .* not found",
				"Link down",
			),
		},
		{
			Name:  Authentication,
			Route: substrings("sudo", "authentication", "passwd", "login"),
			Filter: regexes(
				"Failed password for",
				"authentication failure",
				"Invalid user",
				"sudo:.*authentication failure",
				"Root login",
			),
		},
		{
			Name:  MountFS,
			Route: substrings("mount", "fsck", "ext4", "btrfs", "ntfs"),
			Filter: regexes(
				"mount: .* failed",
				"fsck .* error",
				"read-only file system",
				"filesystem corruption",
				"disk full",
				"I/O error",
				"no such file or directory",
			),
		},
	}
}

func substrings(ps ...string) []Rule {
	rs := make([]Rule, len(ps))
	for i, p := range ps {
		rs[i] = Substring(p)
	}
	return rs
}

func regexes(ps ...string) []Rule {
	rs := make([]Rule, len(ps))
	for i, p := range ps {
		rs[i] = Regex(p)
	}
	return rs
}
