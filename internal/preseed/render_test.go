package preseed_test

import (
	"errors"
	"os"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osbuild/preseed-composer/internal/preseed"
)

var generatedAt = time.Date(2025, 4, 27, 20, 31, 12, 0, time.UTC)

var cryptedShape = regexp.MustCompile(`^\$6\$[a-zA-Z0-9]{16}\$[a-zA-Z0-9./]+$`)

func newTestRenderer() *preseed.Renderer {
	r := preseed.NewRenderer(preseed.DefaultOptions())
	r.Now = func() time.Time { return generatedAt }
	return r
}

// minimalConfig is a DHCP, non-hardened, no-user, regular partitioning
// configuration.
func minimalConfig() *preseed.InstallConfig {
	return &preseed.InstallConfig{
		ConfigName:         "minimal",
		Language:           "en",
		Country:            "NL",
		Locale:             "en_US.UTF-8",
		KeyboardLayout:     "us",
		Hostname:           "debian",
		NetworkMethod:      preseed.NetworkDHCP,
		MirrorProtocol:     preseed.MirrorHTTP,
		MirrorHostname:     "deb.debian.org",
		MirrorDirectory:    "/debian",
		PartitioningMethod: preseed.PartitioningRegular,
		Tasks:              []string{"standard", "ssh-server"},
		Timezone:           "Europe/Amsterdam",
		GrubInstallDevice:  "/dev/sda",
	}
}

func render(t *testing.T, r *preseed.Renderer, c *preseed.InstallConfig) []string {
	t.Helper()
	doc, err := r.Render(c)
	require.NoError(t, err)
	return strings.Split(doc, "\n")
}

// directiveValues returns the values of all directives with the given key.
func directiveValues(doc []string, key string) []string {
	var values []string
	for _, line := range doc {
		fields := strings.SplitN(line, " ", 4)
		if len(fields) < 3 || strings.HasPrefix(line, "#") || fields[1] != key {
			continue
		}
		if len(fields) == 4 {
			values = append(values, fields[3])
		} else {
			values = append(values, "")
		}
	}
	return values
}

func TestRenderGolden(t *testing.T) {
	golden, err := os.ReadFile("testdata/minimal-dhcp.cfg")
	require.NoError(t, err)
	expected := strings.Split(strings.TrimSuffix(string(golden), "\n"), "\n")

	got := render(t, newTestRenderer(), minimalConfig())

	require.Len(t, got, len(expected))
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Fatalf("rendered document differs from golden fixture (-want +got):\n%s", diff)
	}
}

func TestRenderNetworkDHCP(t *testing.T) {
	doc := render(t, newTestRenderer(), minimalConfig())

	require.Equal(t, []string{"false"}, directiveValues(doc, "netcfg/disable_dhcp"))
	require.Equal(t, []string{""}, directiveValues(doc, "netcfg/dhcp_hostname"))
	require.Equal(t, []string{""}, directiveValues(doc, "netcfg/dhcp_domain"))
	for _, key := range []string{"netcfg/get_ipaddress", "netcfg/get_netmask", "netcfg/get_gateway", "netcfg/get_nameservers", "netcfg/confirm_static"} {
		require.Emptyf(t, directiveValues(doc, key), "unexpected %s in DHCP document", key)
	}
}

func TestRenderNetworkStatic(t *testing.T) {
	c := minimalConfig()
	c.NetworkMethod = preseed.NetworkStatic
	c.StaticIP = "192.168.1.10"
	c.StaticNetmask = "255.255.255.0"
	c.StaticGateway = "192.168.1.1"
	c.StaticDNS = "1.1.1.1 8.8.8.8"
	c.Domain = "example.com"
	c.NetworkDevice = "eth0"

	doc := render(t, newTestRenderer(), c)

	require.Equal(t, []string{"true"}, directiveValues(doc, "netcfg/disable_dhcp"))
	require.Equal(t, []string{"true"}, directiveValues(doc, "netcfg/confirm_static"))
	require.Equal(t, []string{"192.168.1.10"}, directiveValues(doc, "netcfg/get_ipaddress"))
	require.Equal(t, []string{"255.255.255.0"}, directiveValues(doc, "netcfg/get_netmask"))
	require.Equal(t, []string{"192.168.1.1"}, directiveValues(doc, "netcfg/get_gateway"))
	require.Equal(t, []string{"1.1.1.1 8.8.8.8"}, directiveValues(doc, "netcfg/get_nameservers"))
	require.Equal(t, []string{"example.com"}, directiveValues(doc, "netcfg/get_domain"))
	require.Equal(t, []string{"eth0"}, directiveValues(doc, "netcfg/choose_interface"))
	require.Empty(t, directiveValues(doc, "netcfg/dhcp_hostname"))
	require.Empty(t, directiveValues(doc, "netcfg/dhcp_domain"))
}

func TestRenderMirrorProxyKeyIsAlwaysHTTP(t *testing.T) {
	c := minimalConfig()
	c.MirrorProtocol = preseed.MirrorFTP
	c.MirrorProxy = "http://proxy.example.com:3128/"

	doc := render(t, newTestRenderer(), c)

	require.Equal(t, []string{"ftp"}, directiveValues(doc, "mirror/protocol"))
	require.Equal(t, []string{"deb.debian.org"}, directiveValues(doc, "mirror/ftp/hostname"))
	require.Equal(t, []string{"/debian"}, directiveValues(doc, "mirror/ftp/directory"))
	require.Equal(t, []string{"http://proxy.example.com:3128/"}, directiveValues(doc, "mirror/http/proxy"))
	require.Empty(t, directiveValues(doc, "mirror/ftp/proxy"))
}

func TestRenderMirrorConstantsFromOptions(t *testing.T) {
	opts := preseed.DefaultOptions()
	opts.Suite = "trixie"
	opts.SecurityHost = "security.mirror.lan"
	opts.SecurityPath = "/sec"
	r := preseed.NewRenderer(opts)

	doc := render(t, r, minimalConfig())

	require.Equal(t, []string{"trixie"}, directiveValues(doc, "mirror/suite"))
	require.Equal(t, []string{"security.mirror.lan"}, directiveValues(doc, "apt-setup/security_host"))
	require.Equal(t, []string{"/sec"}, directiveValues(doc, "apt-setup/security_path"))
}

func TestRenderRootPassword(t *testing.T) {
	c := minimalConfig()
	c.RootPassword = "rootsecret"

	doc := render(t, newTestRenderer(), c)

	require.Equal(t, []string{"true"}, directiveValues(doc, "passwd/root-login"))
	hashes := directiveValues(doc, "passwd/root-password-crypted")
	require.Len(t, hashes, 1)
	require.Regexp(t, cryptedShape, hashes[0])
	require.Empty(t, directiveValues(doc, "passwd/root-password"))
}

func TestRenderDisableRootLogin(t *testing.T) {
	c := minimalConfig()
	c.DisableRootLogin = true
	c.RootPassword = "rootsecret"

	doc := render(t, newTestRenderer(), c)

	require.Equal(t, []string{"false"}, directiveValues(doc, "passwd/root-login"))
	require.Equal(t, []string{""}, directiveValues(doc, "passwd/root-password"))
	require.Equal(t, []string{""}, directiveValues(doc, "passwd/root-password-again"))
	require.Equal(t, []string{"!"}, directiveValues(doc, "passwd/root-password-crypted"))
	require.Contains(t, doc, "# WARNING: Root login disabled and no standard user created!")
}

func TestRenderCISNeverHashesRootPassword(t *testing.T) {
	c := minimalConfig()
	c.CISCompliant = true
	c.RootPassword = "rootsecret"
	c.DisableRootLogin = false

	doc := render(t, newTestRenderer(), c)

	require.Equal(t, []string{"!"}, directiveValues(doc, "passwd/root-password-crypted"))
	require.Equal(t, []string{"false"}, directiveValues(doc, "passwd/root-login"))
	require.Contains(t, doc, "# CIS Hardening: ENABLED (Basic)")
}

func TestRenderCreateUser(t *testing.T) {
	c := minimalConfig()
	c.CreateUser = true
	c.Username = "jdoe"
	c.UserFullname = "Jane Doe"
	c.UserPassword = "usersecret"

	doc := render(t, newTestRenderer(), c)

	require.Equal(t, []string{"true"}, directiveValues(doc, "passwd/make-user"))
	require.Equal(t, []string{"Jane Doe"}, directiveValues(doc, "passwd/user-fullname"))
	require.Equal(t, []string{"jdoe"}, directiveValues(doc, "passwd/username"))
	hashes := directiveValues(doc, "passwd/user-password-crypted")
	require.Len(t, hashes, 1)
	require.NotEqual(t, "!", hashes[0])
	require.Regexp(t, cryptedShape, hashes[0])
	// root is enabled, so no extra groups
	require.Equal(t, []string{""}, directiveValues(doc, "passwd/user-default-groups"))
}

func TestRenderCreateUserLockedWithSudo(t *testing.T) {
	c := minimalConfig()
	c.CreateUser = true
	c.Username = "jdoe"
	c.UserFullname = "Jane Doe"
	c.DisableRootLogin = true

	doc := render(t, newTestRenderer(), c)

	require.Equal(t, []string{""}, directiveValues(doc, "passwd/user-password"))
	require.Equal(t, []string{""}, directiveValues(doc, "passwd/user-password-again"))
	require.Equal(t, []string{"!"}, directiveValues(doc, "passwd/user-password-crypted"))
	require.Equal(t, []string{"adm sudo"}, directiveValues(doc, "passwd/user-default-groups"))
	require.NotContains(t, doc, "# WARNING: Root login disabled and no standard user created!")
}

func TestRenderHashFailurePropagates(t *testing.T) {
	r := newTestRenderer()
	r.HashPassword = func(string) (string, error) {
		return "", errors.New("entropy exhausted")
	}
	c := minimalConfig()
	c.RootPassword = "rootsecret"

	_, err := r.Render(c)
	require.EqualError(t, err, "entropy exhausted")
}

func TestRenderPartitioning(t *testing.T) {
	cases := []struct {
		method       preseed.PartitioningMethod
		separateHome bool
		recipe       string
		lvmConfirm   bool
		cryptoErase  bool
	}{
		{preseed.PartitioningRegular, false, "atomic", false, false},
		{preseed.PartitioningRegular, true, "multi", false, false},
		{preseed.PartitioningLVM, true, "atomic", true, false},
		{preseed.PartitioningCrypto, false, "atomic", true, true},
	}

	for _, tc := range cases {
		t.Run(string(tc.method), func(t *testing.T) {
			c := minimalConfig()
			c.PartitioningMethod = tc.method
			c.SeparateHome = tc.separateHome

			doc := render(t, newTestRenderer(), c)

			require.Equal(t, []string{string(tc.method)}, directiveValues(doc, "partman-auto/method"))
			require.Equal(t, []string{tc.recipe}, directiveValues(doc, "partman-auto/choose_recipe"))
			require.Equal(t, []string{"true"}, directiveValues(doc, "partman/confirm"))
			require.Equal(t, tc.lvmConfirm, len(directiveValues(doc, "partman-lvm/confirm")) == 1)
			require.Equal(t, tc.lvmConfirm, len(directiveValues(doc, "partman-lvm/confirm_nooverwrite")) == 1)
			require.Equal(t, tc.cryptoErase, len(directiveValues(doc, "partman-crypto/confirm_erase")) == 1)
		})
	}
}

func TestRenderCryptoPassphrase(t *testing.T) {
	c := minimalConfig()
	c.PartitioningMethod = preseed.PartitioningCrypto

	doc := render(t, newTestRenderer(), c)
	require.Equal(t, []string{preseed.DefaultCryptoPassphrase}, directiveValues(doc, "partman-crypto/passphrase"))
	require.Equal(t, []string{preseed.DefaultCryptoPassphrase}, directiveValues(doc, "partman-crypto/passphrase-again"))
	require.Equal(t, []string{"max"}, directiveValues(doc, "partman-auto-crypto/guided_size"))

	opts := preseed.DefaultOptions()
	opts.CryptoPassphrase = "correct horse battery staple"
	require.False(t, opts.UsesPlaceholderPassphrase())
	doc = render(t, preseed.NewRenderer(opts), c)
	require.Equal(t, []string{"correct horse battery staple"}, directiveValues(doc, "partman-crypto/passphrase"))
}

func TestRenderCISPartitioningIgnoresMethod(t *testing.T) {
	c := minimalConfig()
	c.CISCompliant = true
	c.PartitioningMethod = preseed.PartitioningCrypto
	c.SeparateHome = true

	doc := render(t, newTestRenderer(), c)

	require.Equal(t, []string{"regular"}, directiveValues(doc, "partman-auto/method"))
	require.Equal(t, []string{preseed.DefaultCISRecipeFile}, directiveValues(doc, "partman-auto/expert_recipe_file"))
	require.Empty(t, directiveValues(doc, "partman-auto/choose_recipe"))
	require.Empty(t, directiveValues(doc, "partman-crypto/passphrase"))
	require.Empty(t, directiveValues(doc, "partman-lvm/confirm"))
	require.Empty(t, directiveValues(doc, "partman-crypto/confirm_erase"))
}

func TestRenderStandardTaskIsAdditive(t *testing.T) {
	c := minimalConfig()
	c.Tasks = []string{"web-server"}

	doc := render(t, newTestRenderer(), c)

	require.Equal(t, []string{"web-server"}, directiveValues(doc, "tasksel/first"))
	require.Equal(t, []string{"standard"}, directiveValues(doc, "tasksel/include"))

	c.Tasks = []string{"standard", "web-server"}
	doc = render(t, newTestRenderer(), c)
	require.Equal(t, []string{"standard, web-server"}, directiveValues(doc, "tasksel/first"))
	require.Empty(t, directiveValues(doc, "tasksel/include"))
}

func TestRenderAdditionalPackages(t *testing.T) {
	doc := render(t, newTestRenderer(), minimalConfig())
	require.Empty(t, directiveValues(doc, "pkgsel/include"))

	c := minimalConfig()
	c.AdditionalPackages = "vim curl htop"
	doc = render(t, newTestRenderer(), c)
	require.Equal(t, []string{"vim curl htop"}, directiveValues(doc, "pkgsel/include"))
}

func TestRenderGrubAllDevices(t *testing.T) {
	c := minimalConfig()
	c.GrubInstallDevice = "all"

	doc := render(t, newTestRenderer(), c)

	require.Equal(t, []string{preseed.DefaultDisk}, directiveValues(doc, "partman-auto/disk"))
	require.Equal(t, []string{"true"}, directiveValues(doc, "grub-installer/only_debian"))
	require.Equal(t, []string{"true"}, directiveValues(doc, "grub-installer/with_other_os"))
	require.Equal(t, []string{"default"}, directiveValues(doc, "grub-installer/bootdev"))
}

func TestRenderGrubSpecificDevice(t *testing.T) {
	c := minimalConfig()
	c.GrubInstallDevice = "/dev/sdb"

	doc := render(t, newTestRenderer(), c)

	require.Equal(t, []string{"/dev/sdb"}, directiveValues(doc, "partman-auto/disk"))
	require.Equal(t, []string{"/dev/sdb"}, directiveValues(doc, "grub-installer/bootdev"))
	require.Empty(t, directiveValues(doc, "grub-installer/only_debian"))
	require.Contains(t, doc, "# Install GRUB to specific device: /dev/sdb")
}

// Only the bootloader section compares case-insensitively, so "ALL" is
// kept as the partitioning target.
func TestRenderGrubUppercaseAll(t *testing.T) {
	c := minimalConfig()
	c.GrubInstallDevice = "ALL"

	doc := render(t, newTestRenderer(), c)

	require.Equal(t, []string{"ALL"}, directiveValues(doc, "partman-auto/disk"))
	require.Equal(t, []string{"default"}, directiveValues(doc, "grub-installer/bootdev"))
}

func TestRenderDefaultDiskFromOptions(t *testing.T) {
	opts := preseed.DefaultOptions()
	opts.DefaultDisk = "/dev/vda"
	c := minimalConfig()
	c.GrubInstallDevice = "all"

	doc := render(t, preseed.NewRenderer(opts), c)
	require.Equal(t, []string{"/dev/vda"}, directiveValues(doc, "partman-auto/disk"))
}

func TestRenderLateCommandEscaping(t *testing.T) {
	c := minimalConfig()
	c.LateCommand = "  echo 'hello world' > /root/hello  \n"

	doc, err := newTestRenderer().Render(c)
	require.NoError(t, err)

	require.Contains(t, doc, "# Running late commands in target system\n"+
		"d-i preseed/late_command string \\\n"+
		`  in-target sh -c 'echo '\''hello world'\'' > /root/hello'`+"\n")
}

func TestRenderLateCommandEmpty(t *testing.T) {
	c := minimalConfig()
	c.LateCommand = " \n\t "

	doc := render(t, newTestRenderer(), c)

	require.Contains(t, doc, "# No late commands specified.")
	require.Empty(t, directiveValues(doc, "preseed/late_command"))
}

func TestRenderCISLateCommand(t *testing.T) {
	c := minimalConfig()
	c.CISCompliant = true
	c.Tasks = []string{"standard", "ssh-server", "web-server"}
	c.LateCommand = "touch /root/done"

	doc, err := newTestRenderer().Render(c)
	require.NoError(t, err)

	require.Contains(t, doc, "d-i preseed/late_command string \\\n  in-target sh -c '# --- Basic CIS Hardening Commands (late_command) ---\n")
	for _, rule := range []string{"ufw allow ssh", "ufw allow http", "ufw allow https"} {
		assert.Contains(t, doc, "\n"+rule+"\n")
	}
	// the user command follows the hardening block
	assert.Contains(t, doc, "# --- End Basic CIS Hardening Commands ---\ntouch /root/done'\n")
	// quotes inside the hardening block are escaped
	assert.Contains(t, doc, `echo '\''y'\'' | ufw enable`)
}

func TestLateCommand(t *testing.T) {
	c := minimalConfig()
	require.Equal(t, "", preseed.LateCommand(c))

	c.LateCommand = "\n  apt-get clean \n"
	require.Equal(t, "apt-get clean", preseed.LateCommand(c))

	c.CISCompliant = true
	c.LateCommand = ""
	cmd := preseed.LateCommand(c)
	require.Equal(t, strings.TrimSpace(preseed.HardeningCommands(c)), cmd)
}

func TestRenderConcurrent(t *testing.T) {
	r := newTestRenderer()
	expected := render(t, r, minimalConfig())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doc, err := r.Render(minimalConfig())
			assert.NoError(t, err)
			assert.Equal(t, strings.Join(expected, "\n"), doc)
		}()
	}
	wg.Wait()
}

func TestRenderGeneratorBanner(t *testing.T) {
	doc := render(t, newTestRenderer(), minimalConfig())
	require.Equal(t, "# Generated by: Preseed Generator", doc[2])

	opts := preseed.DefaultOptions()
	opts.Generator = "ACME provisioning"
	r := preseed.NewRenderer(opts)
	r.Now = func() time.Time { return generatedAt }
	doc = render(t, r, minimalConfig())
	require.Equal(t, "# Generated by: ACME provisioning", doc[2])
}
