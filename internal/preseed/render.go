package preseed

import (
	"strings"
	"time"

	"github.com/osbuild/preseed-composer/internal/crypt"
)

const banner = "# ======================================================="

// timestampLayout is ISO-8601 with a numeric zone offset, also for UTC.
const timestampLayout = "2006-01-02T15:04:05-07:00"

// trimCutset matches the characters stripped from both ends of the late
// command.
const trimCutset = " \t\n\r\x00\x0b"

// Renderer turns validated InstallConfigs into preseed documents. A Renderer
// holds no mutable state and may be used from multiple goroutines.
type Renderer struct {
	Options Options

	// Now returns the generation timestamp written to the header.
	Now func() time.Time

	// HashPassword maps a plaintext password to the value of a
	// *-password-crypted directive.
	HashPassword func(string) (string, error)
}

func NewRenderer(opts Options) *Renderer {
	return &Renderer{
		Options:      opts,
		Now:          time.Now,
		HashPassword: crypt.HashPassword,
	}
}

// Render returns the preseed document for c. It only fails if hashing a
// password fails.
func (r *Renderer) Render(c *InstallConfig) (string, error) {
	var doc lines

	r.header(&doc, c)
	r.localization(&doc, c)
	r.network(&doc, c)
	r.mirror(&doc, c)
	if err := r.accounts(&doc, c); err != nil {
		return "", err
	}
	r.partitioning(&doc, c)
	r.software(&doc, c)
	r.timezone(&doc, c)
	r.bootloader(&doc, c)
	r.lateCommand(&doc, c)
	r.footer(&doc)

	return doc.String(), nil
}

func (r *Renderer) header(doc *lines, c *InstallConfig) {
	name := c.ConfigName
	if name == "" {
		name = "unnamed-config"
	}

	doc.add(banner)
	doc.comment("Debian Preseed Configuration")
	doc.comment("Generated by: " + r.Options.Generator)
	doc.comment("Config Name: " + name)
	doc.comment("Generated At: " + r.Now().Format(timestampLayout))
	if c.CISCompliant {
		doc.comment("CIS Hardening: ENABLED (Basic)")
	}
	doc.add(banner)
	doc.blank()
}

func (r *Renderer) localization(doc *lines, c *InstallConfig) {
	doc.comment("--- Localization ---")
	doc.di("debian-installer/language", "string", c.Language)
	doc.di("debian-installer/country", "string", c.Country)
	doc.di("debian-installer/locale", "string", c.Locale)
	doc.di("console-setup/ask_detect", "boolean", "false")
	doc.di("keyboard-configuration/xkb-keymap", "select", c.KeyboardLayout)
	doc.blank()
}

func (r *Renderer) network(doc *lines, c *InstallConfig) {
	doc.comment("--- Network Configuration ---")
	doc.di("netcfg/get_hostname", "string", c.Hostname)
	doc.di("netcfg/get_domain", "string", orDefault(c.Domain, "localdomain"))
	doc.di("netcfg/choose_interface", "select", orDefault(c.NetworkDevice, "auto"))
	doc.di("netcfg/wireless_wep", "string", "")

	if c.NetworkMethod == NetworkStatic {
		doc.comment("Static IP Configuration")
		doc.di("netcfg/disable_dhcp", "boolean", "true")
		doc.di("netcfg/confirm_static", "boolean", "true")
		doc.di("netcfg/get_ipaddress", "string", c.StaticIP)
		doc.di("netcfg/get_netmask", "string", c.StaticNetmask)
		doc.di("netcfg/get_gateway", "string", c.StaticGateway)
		doc.di("netcfg/get_nameservers", "string", c.StaticDNS)
	} else {
		doc.comment("DHCP Configuration")
		doc.di("netcfg/disable_dhcp", "boolean", "false")
		// keep DHCP from overriding the hostname and domain set above
		doc.di("netcfg/dhcp_hostname", "string", "")
		doc.di("netcfg/dhcp_domain", "string", "")
	}
	doc.blank()
}

func (r *Renderer) mirror(doc *lines, c *InstallConfig) {
	proto := string(c.MirrorProtocol)

	doc.comment("--- Mirror Configuration ---")
	doc.di("mirror/country", "string", "manual")
	doc.di("mirror/protocol", "string", proto)
	doc.di("mirror/"+proto+"/hostname", "string", c.MirrorHostname)
	doc.di("mirror/"+proto+"/directory", "string", c.MirrorDirectory)
	doc.di("mirror/suite", "string", r.Options.Suite)
	doc.di("apt-setup/use_mirror", "boolean", "true")
	doc.di("apt-setup/restricted", "boolean", "true")
	doc.di("apt-setup/multiverse", "boolean", "true")
	doc.di("apt-setup/services-select", "multiselect", "security, updates")
	doc.di("apt-setup/security_host", "string", r.Options.SecurityHost)
	doc.di("apt-setup/security_path", "string", r.Options.SecurityPath)
	// the proxy key is always the http one, whatever the mirror protocol
	doc.di("mirror/http/proxy", "string", c.MirrorProxy)
	doc.blank()
}

func (r *Renderer) accounts(doc *lines, c *InstallConfig) error {
	rootDisabled := c.RootLoginDisabled()

	doc.comment("--- Account Setup ---")
	if rootDisabled {
		doc.comment("Root login disabled (CIS or explicit)")
		doc.di("passwd/root-login", "boolean", "false")
		lockedPassword(doc, "root")
	} else {
		doc.comment("Root login enabled")
		doc.di("passwd/root-login", "boolean", "true")
		if c.RootPassword != "" {
			hash, err := r.HashPassword(c.RootPassword)
			if err != nil {
				return err
			}
			doc.comment("Root password set (using hash)")
			doc.di("passwd/root-password-crypted", "password", hash)
		} else {
			doc.comment("Root password left empty (account enabled but locked)")
			lockedPassword(doc, "root")
		}
	}

	if c.CreateUser {
		doc.comment("Create standard user")
		doc.di("passwd/make-user", "boolean", "true")
		doc.di("passwd/user-fullname", "string", c.UserFullname)
		doc.di("passwd/username", "string", c.Username)
		if c.UserPassword != "" {
			hash, err := r.HashPassword(c.UserPassword)
			if err != nil {
				return err
			}
			doc.comment("Standard user password set (using hash)")
			doc.di("passwd/user-password-crypted", "password", hash)
		} else {
			doc.comment("Standard user password left empty (account may be locked)")
			lockedPassword(doc, "user")
		}

		if rootDisabled {
			doc.comment("Grant sudo rights to standard user")
			doc.di("passwd/user-default-groups", "string", "adm sudo")
		} else {
			doc.di("passwd/user-default-groups", "string", "")
		}
	} else {
		doc.comment("Do not create standard user")
		doc.di("passwd/make-user", "boolean", "false")
		if rootDisabled {
			doc.comment("WARNING: Root login disabled and no standard user created!")
			doc.comment("         System might be inaccessible after install.")
		}
	}
	doc.blank()

	return nil
}

// lockedPassword emits the empty password pair and the locked hash for
// account, which is either "root" or "user".
func lockedPassword(doc *lines, account string) {
	doc.di("passwd/"+account+"-password", "password", "")
	doc.di("passwd/"+account+"-password-again", "password", "")
	doc.di("passwd/"+account+"-password-crypted", "password", crypt.LockedPassword)
}

// targetDisk is the disk handed to auto-partitioning. Only the exact
// lowercase "all" falls back to the default disk.
func (r *Renderer) targetDisk(c *InstallConfig) string {
	if c.GrubInstallDevice != GrubInstallAll {
		return c.GrubInstallDevice
	}
	return r.Options.DefaultDisk
}

func (r *Renderer) partitioning(doc *lines, c *InstallConfig) {
	doc.comment("--- Disk Partitioning ---")
	doc.di("partman-auto/disk", "string", r.targetDisk(c))

	if c.CISCompliant {
		doc.comment("CIS Compliant Partitioning (using expert recipe)")
		doc.di("partman-auto/method", "string", string(PartitioningRegular))
		doc.di("partman-auto/expert_recipe_file", "string", r.Options.CISRecipeFile)
		doc.comment("NOTE: The file " + r.Options.CISRecipeFile + " must exist for this to work.")
		doc.comment("      Generating this recipe dynamically here is very complex.")
	} else {
		doc.comment("Standard Guided Partitioning")
		doc.di("partman-auto/method", "string", string(c.PartitioningMethod))

		switch c.PartitioningMethod {
		case PartitioningRegular:
			recipe := "atomic"
			if c.SeparateHome {
				recipe = "multi"
			}
			doc.di("partman-auto/choose_recipe", "select", recipe)
		case PartitioningLVM:
			doc.di("partman-auto-lvm/guided_size", "string", "max")
			doc.di("partman-auto/choose_recipe", "select", "atomic")
		case PartitioningCrypto:
			doc.di("partman-auto-crypto/guided_size", "string", "max")
			doc.di("partman-crypto/passphrase", "password", r.Options.CryptoPassphrase)
			doc.di("partman-crypto/passphrase-again", "password", r.Options.CryptoPassphrase)
			doc.di("partman-auto/choose_recipe", "select", "atomic")
		}
	}

	doc.di("partman-partitioning/confirm_write_new_label", "boolean", "true")
	doc.di("partman/choose_partition", "select", "finish")
	doc.di("partman/confirm", "boolean", "true")
	doc.di("partman/confirm_nooverwrite", "boolean", "true")

	if !c.CISCompliant {
		method := c.PartitioningMethod
		if method == PartitioningLVM || method == PartitioningCrypto {
			doc.di("partman-lvm/confirm", "boolean", "true")
			doc.di("partman-lvm/confirm_nooverwrite", "boolean", "true")
		}
		if method == PartitioningCrypto {
			doc.di("partman-crypto/confirm_erase", "boolean", "true")
		}
	}
	doc.blank()
}

func (r *Renderer) software(doc *lines, c *InstallConfig) {
	doc.comment("--- Software Selection ---")
	doc.directive("tasksel", "tasksel/first", "multiselect", strings.Join(c.Tasks, ", "))
	// Adds standard next to the selection above, the multiselect line
	// is left untouched.
	if !c.HasTask(TaskStandard) {
		doc.comment("Ensuring 'standard' task is selected")
		doc.directive("tasksel", "tasksel/include", "string", TaskStandard)
	}

	if c.AdditionalPackages != "" {
		doc.di("pkgsel/include", "string", c.AdditionalPackages)
	}
	doc.di("pkgsel/upgrade", "select", "full-upgrade")
	doc.di("pkgsel/update-policy", "select", "unattended-upgrades")
	doc.directive("popularity-contest", "popularity-contest/participate", "boolean", "false")
	doc.blank()
}

func (r *Renderer) timezone(doc *lines, c *InstallConfig) {
	doc.comment("--- Timezone ---")
	doc.di("clock-setup/utc", "boolean", "true")
	doc.di("time/zone", "string", c.Timezone)
	doc.di("clock-setup/ntp", "boolean", "true")
	doc.blank()
}

func (r *Renderer) bootloader(doc *lines, c *InstallConfig) {
	doc.comment("--- Bootloader Installation ---")
	doc.di("grub-installer/grub2_instead_of_grub_legacy", "boolean", "true")
	if strings.ToLower(c.GrubInstallDevice) == GrubInstallAll {
		doc.comment("Install GRUB to all available devices (MBR/EFI)")
		doc.di("grub-installer/only_debian", "boolean", "true")
		doc.di("grub-installer/with_other_os", "boolean", "true")
		doc.di("grub-installer/bootdev", "string", "default")
	} else {
		doc.comment("Install GRUB to specific device: " + c.GrubInstallDevice)
		doc.di("grub-installer/bootdev", "string", c.GrubInstallDevice)
	}
	doc.directive("grub-pc", "grub-pc/install_devices_failed", "boolean", "false")
	doc.directive("grub-pc", "grub-pc/install_devices_empty", "boolean", "false")
	doc.blank()
}

// LateCommand returns the shell fragment run in the target system: the
// hardening commands when enabled, followed by the user's own command.
func LateCommand(c *InstallConfig) string {
	cmd := strings.Trim(c.LateCommand, trimCutset)
	if c.CISCompliant {
		if hardening := strings.Trim(HardeningCommands(c), trimCutset); hardening != "" {
			cmd = hardening + "\n" + cmd
		}
	}
	return strings.Trim(cmd, trimCutset)
}

// shellQuote escapes s for use inside a single-quoted shell string.
func shellQuote(s string) string {
	return strings.ReplaceAll(s, "'", `'\''`)
}

func (r *Renderer) lateCommand(doc *lines, c *InstallConfig) {
	doc.comment("--- Late Command Execution ---")
	if cmd := LateCommand(c); cmd != "" {
		doc.comment("Running late commands in target system")
		doc.di("preseed/late_command", "string", `\`)
		doc.add("  in-target sh -c '" + shellQuote(cmd) + "'")
	} else {
		doc.comment("No late commands specified.")
	}
	doc.blank()
}

func (r *Renderer) footer(doc *lines) {
	doc.comment("--- Finishing Installation ---")
	doc.di("finish-install/reboot_in_progress", "note", "")
	doc.comment("d-i cdrom-detect/eject boolean true")
	doc.blank()
	doc.add(banner)
	doc.comment("End of Preseed Configuration")
	doc.add(banner)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
