package preseed

// LoginBanner replaces /etc/issue and /etc/issue.net on hardened systems.
const LoginBanner = "Authorized uses only. All activity may be monitored and reported."

const (
	sshdConfig     = "/etc/ssh/sshd_config"
	auditRulesFile = "/etc/audit/rules.d/50-cis-audit.rules"
	grubConfig     = "/boot/grub/grub.cfg"
)

// legacyPackages are purged from every hardened system.
const legacyPackages = "xinetd telnetd nis rsh-client rsh-redone-client"

// HardeningCommands returns the baseline hardening shell fragment that runs
// as part of the late command when hardening is enabled. The firewall and
// SSH daemon sections are only emitted when the ssh-server task is selected.
//
// The result is not escaped; the renderer quotes the whole late command.
func HardeningCommands(c *InstallConfig) string {
	var cmds lines

	cmds.comment("--- Basic CIS Hardening Commands (late_command) ---")
	cmds.add(stderr("*** Applying Basic CIS Hardening via late_command ***"))

	// /tmp mount options, each remount may fail without aborting
	cmds.add(stderr("Remounting filesystems with CIS options (best effort)"))
	for _, opt := range []string{"nodev", "nosuid", "noexec"} {
		cmds.add("mount -o remount," + opt + " /tmp || echo 'Failed to remount /tmp with " + opt + "'")
	}
	cmds.add(`sed -i -E '/\s+\/tmp\s+/ s/(defaults[[:alnum:],]*)/\1,nodev,nosuid,noexec/' /etc/fstab`)

	cmds.add(stderr("Configuring unattended-upgrades"))
	cmds.add(
		"apt-get update",
		"apt-get install -y unattended-upgrades apt-listchanges",
		"dpkg-reconfigure -plow unattended-upgrades",
	)

	cmds.add(stderr("Securing GRUB configuration"))
	cmds.add(
		"chown root:root "+grubConfig,
		"chmod og-rwx "+grubConfig,
	)

	cmds.add(stderr("Installing and enabling auditd"))
	cmds.add(
		"apt-get install -y auditd audispd-plugins",
		"echo '-w /etc/sudoers -p wa -k scope' >> "+auditRulesFile,
		"echo '-w /etc/sudoers.d/ -p wa -k scope' >> "+auditRulesFile,
		"systemctl enable auditd",
	)

	cmds.add(stderr("Setting login banners"))
	cmds.add(
		`echo "`+LoginBanner+`" > /etc/issue`,
		`echo "`+LoginBanner+`" > /etc/issue.net`,
		"rm -f /etc/motd",
	)

	cmds.add(stderr("Removing unnecessary packages"))
	cmds.add("apt-get purge -y " + legacyPackages)

	if c.HasTask(TaskSSHServer) {
		cmds.add(stderr("Configuring UFW firewall"))
		cmds.add(
			"apt-get install -y ufw",
			"ufw default deny incoming",
			"ufw default allow outgoing",
			"ufw allow ssh",
		)
		if c.HasTask(TaskWebServer) {
			cmds.add(
				"ufw allow http",
				"ufw allow https",
			)
		}
		cmds.add("echo 'y' | ufw enable")

		cmds.add(stderr("Applying basic SSH hardening"))
		cmds.add(
			sshdSet("PermitRootLogin", "no"),
			sshdSet("PasswordAuthentication", "no"),
			sshdSet("ChallengeResponseAuthentication", "no"),
			sshdSet("UsePAM", "yes"),
			"systemctl restart sshd",
		)
	}

	cmds.add(stderr("*** Basic CIS Hardening via late_command finished ***"))
	cmds.comment("--- End Basic CIS Hardening Commands ---")

	return cmds.String()
}

func stderr(msg string) string {
	return "echo '" + msg + "' >&2"
}

// sshdSet replaces the (possibly commented out) option line in sshd_config.
func sshdSet(option, value string) string {
	return "sed -i '/^#*" + option + "/c\\" + option + " " + value + "' " + sshdConfig
}
