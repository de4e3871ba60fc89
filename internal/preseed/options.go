package preseed

// Defaults for the deployment-specific values baked into every document.
const (
	DefaultSuite         = "bookworm"
	DefaultSecurityHost  = "security.debian.org"
	DefaultSecurityPath  = "/debian-security"
	DefaultDisk          = "/dev/sda"
	DefaultCISRecipeFile = "/cdrom/cis-partitioning.rcp"
	DefaultGenerator     = "Preseed Generator"

	// DefaultCryptoPassphrase is a known placeholder, not a secret. Every
	// document rendered with it for crypto partitioning encrypts the disk
	// with this passphrase. Deployments must override it.
	DefaultCryptoPassphrase = "secret"
)

// Options are the values a deployment may override. The zero value is not
// useful; start from DefaultOptions.
type Options struct {
	Suite         string `toml:"suite"`
	SecurityHost  string `toml:"security_host"`
	SecurityPath  string `toml:"security_path"`
	DefaultDisk   string `toml:"default_disk"`
	CISRecipeFile string `toml:"cis_recipe_file"`
	Generator     string `toml:"generator"`

	CryptoPassphrase string `toml:"crypto_passphrase"`
}

func DefaultOptions() Options {
	return Options{
		Suite:            DefaultSuite,
		SecurityHost:     DefaultSecurityHost,
		SecurityPath:     DefaultSecurityPath,
		DefaultDisk:      DefaultDisk,
		CISRecipeFile:    DefaultCISRecipeFile,
		Generator:        DefaultGenerator,
		CryptoPassphrase: DefaultCryptoPassphrase,
	}
}

// UsesPlaceholderPassphrase reports whether crypto partitioning would emit
// the built-in placeholder passphrase.
func (o Options) UsesPlaceholderPassphrase() bool {
	return o.CryptoPassphrase == DefaultCryptoPassphrase
}
