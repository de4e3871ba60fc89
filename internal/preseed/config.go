// Package preseed renders an InstallConfig into a Debian installer preseed
// document.
//
// Rendering is a pure function of its input apart from one clock read for
// the header timestamp and one random salt per hashed password. Both are
// injectable on the Renderer.
package preseed

type NetworkMethod string

const (
	NetworkDHCP   NetworkMethod = "dhcp"
	NetworkStatic NetworkMethod = "static"
)

type MirrorProtocol string

const (
	MirrorHTTP  MirrorProtocol = "http"
	MirrorHTTPS MirrorProtocol = "https"
	MirrorFTP   MirrorProtocol = "ftp"
)

type PartitioningMethod string

const (
	PartitioningRegular PartitioningMethod = "regular"
	PartitioningLVM     PartitioningMethod = "lvm"
	PartitioningCrypto  PartitioningMethod = "crypto"
)

// Tasks with special meaning to the renderer.
const (
	TaskStandard  = "standard"
	TaskSSHServer = "ssh-server"
	TaskWebServer = "web-server"
)

// GrubInstallAll is the GrubInstallDevice value that installs the
// bootloader to every device.
const GrubInstallAll = "all"

// InstallConfig describes one target installation. It must have passed
// validation before it is rendered; the renderer does not re-check it.
//
// Optional strings are absent when empty.
type InstallConfig struct {
	ConfigName string `json:"config_name" toml:"config_name"`

	Language       string `json:"language" toml:"language"`
	Country        string `json:"country" toml:"country"`
	Locale         string `json:"locale" toml:"locale"`
	KeyboardLayout string `json:"keyboard_layout" toml:"keyboard_layout"`

	Hostname      string        `json:"hostname" toml:"hostname"`
	Domain        string        `json:"domain,omitempty" toml:"domain"`
	NetworkMethod NetworkMethod `json:"network_method" toml:"network_method"`
	StaticIP      string        `json:"static_ip,omitempty" toml:"static_ip"`
	StaticNetmask string        `json:"static_netmask,omitempty" toml:"static_netmask"`
	StaticGateway string        `json:"static_gateway,omitempty" toml:"static_gateway"`
	StaticDNS     string        `json:"static_dns,omitempty" toml:"static_dns"`
	NetworkDevice string        `json:"network_device,omitempty" toml:"network_device"`

	MirrorProtocol  MirrorProtocol `json:"mirror_protocol" toml:"mirror_protocol"`
	MirrorHostname  string         `json:"mirror_hostname" toml:"mirror_hostname"`
	MirrorDirectory string         `json:"mirror_directory" toml:"mirror_directory"`
	MirrorProxy     string         `json:"mirror_proxy,omitempty" toml:"mirror_proxy"`

	RootPassword     string `json:"root_password,omitempty" toml:"root_password"`
	DisableRootLogin bool   `json:"disable_root_login" toml:"disable_root_login"`
	CreateUser       bool   `json:"create_user" toml:"create_user"`
	Username         string `json:"username,omitempty" toml:"username"`
	UserFullname     string `json:"user_fullname,omitempty" toml:"user_fullname"`
	UserPassword     string `json:"user_password,omitempty" toml:"user_password"`

	PartitioningMethod PartitioningMethod `json:"partitioning_method,omitempty" toml:"partitioning_method"`
	SeparateHome       bool               `json:"separate_home" toml:"separate_home"`

	Tasks              []string `json:"tasks" toml:"tasks"`
	AdditionalPackages string   `json:"additional_packages,omitempty" toml:"additional_packages"`

	Timezone          string `json:"timezone" toml:"timezone"`
	GrubInstallDevice string `json:"grub_install_device" toml:"grub_install_device"`
	LateCommand       string `json:"late_command,omitempty" toml:"late_command"`
	CISCompliant      bool   `json:"cis_compliant" toml:"cis_compliant"`
}

// RootLoginDisabled reports whether the root account is locked, either
// explicitly or because hardening is enabled.
func (c *InstallConfig) RootLoginDisabled() bool {
	return c.CISCompliant || c.DisableRootLogin
}

// HasTask reports whether task is among the selected tasks.
func (c *InstallConfig) HasTask(task string) bool {
	for _, t := range c.Tasks {
		if t == task {
			return true
		}
	}
	return false
}
