package schema_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osbuild/preseed-composer/internal/preseed"
	"github.com/osbuild/preseed-composer/internal/schema"
)

func validInput() map[string]interface{} {
	return map[string]interface{}{
		"config_name":         "web01",
		"language":            "en",
		"country":             "NL",
		"locale":              "en_US.UTF-8",
		"keyboard_layout":     "us",
		"hostname":            "web01",
		"domain":              "example.com",
		"network_method":      "dhcp",
		"mirror_protocol":     "http",
		"mirror_hostname":     "deb.debian.org",
		"mirror_directory":    "/debian",
		"disable_root_login":  false,
		"create_user":         false,
		"partitioning_method": "regular",
		"separate_home":       false,
		"tasks":               []string{"standard", "ssh-server"},
		"timezone":            "Europe/Amsterdam",
		"grub_install_device": "/dev/sda",
		"cis_compliant":       false,
	}
}

func validate(t *testing.T, input map[string]interface{}) (*preseed.InstallConfig, error) {
	t.Helper()
	v, err := schema.NewValidator()
	require.NoError(t, err)
	data, err := json.Marshal(input)
	require.NoError(t, err)
	return v.Validate(data)
}

func fieldErrors(t *testing.T, err error) schema.FieldErrors {
	t.Helper()
	var ve *schema.ValidationError
	require.True(t, errors.As(err, &ve), "expected a validation error, got %v", err)
	return ve.Fields
}

func TestValidInput(t *testing.T) {
	config, err := validate(t, validInput())
	require.NoError(t, err)

	require.Equal(t, "web01", config.ConfigName)
	require.Equal(t, preseed.NetworkDHCP, config.NetworkMethod)
	require.Equal(t, preseed.MirrorHTTP, config.MirrorProtocol)
	require.Equal(t, preseed.PartitioningRegular, config.PartitioningMethod)
	require.Equal(t, []string{"standard", "ssh-server"}, config.Tasks)
	require.Equal(t, "example.com", config.Domain)
}

func TestRequiredFields(t *testing.T) {
	_, err := validate(t, map[string]interface{}{})
	fields := fieldErrors(t, err)

	for _, f := range []string{"config_name", "hostname", "network_method", "tasks", "cis_compliant", "partitioning_method", "separate_home"} {
		assert.Containsf(t, fields, f, "missing error for %s", f)
	}
}

func TestEmptyStringsAreAbsent(t *testing.T) {
	input := validInput()
	input["domain"] = ""
	input["mirror_proxy"] = "   "
	input["network_device"] = nil

	config, err := validate(t, input)
	require.NoError(t, err)
	require.Equal(t, "", config.Domain)
	require.Equal(t, "", config.MirrorProxy)
	require.Equal(t, "", config.NetworkDevice)

	input["hostname"] = ""
	_, err = validate(t, input)
	require.Contains(t, fieldErrors(t, err), "hostname")
}

func TestStringsAreTrimmed(t *testing.T) {
	input := validInput()
	input["hostname"] = "  web01 "
	input["tasks"] = []string{" standard "}

	config, err := validate(t, input)
	require.NoError(t, err)
	require.Equal(t, "web01", config.Hostname)
	require.Equal(t, []string{"standard"}, config.Tasks)
}

func TestHostnameAndDomainSyntax(t *testing.T) {
	input := validInput()
	input["hostname"] = "-bad-"
	input["domain"] = "not a domain"
	input["username"] = "Bad User"

	_, err := validate(t, input)
	fields := fieldErrors(t, err)
	require.Contains(t, fields, "hostname")
	require.Contains(t, fields, "domain")
	require.Contains(t, fields, "username")
}

func TestStaticNetwork(t *testing.T) {
	input := validInput()
	input["network_method"] = "static"

	_, err := validate(t, input)
	fields := fieldErrors(t, err)
	for _, f := range []string{"static_ip", "static_netmask", "static_gateway", "static_dns"} {
		require.Contains(t, fields, f)
	}

	input["static_ip"] = "192.168.1.300"
	input["static_netmask"] = "255.255.255.0"
	input["static_gateway"] = "fe80::1"
	input["static_dns"] = "192.168.1.1"
	_, err = validate(t, input)
	fields = fieldErrors(t, err)
	require.Equal(t, schema.FieldErrors{"static_ip": {"must be a valid IP address"}}, fields)

	input["static_ip"] = "192.168.1.30"
	config, err := validate(t, input)
	require.NoError(t, err)
	require.Equal(t, preseed.NetworkStatic, config.NetworkMethod)
	require.Equal(t, "fe80::1", config.StaticGateway)
}

func TestMirrorProtocols(t *testing.T) {
	for _, proto := range []string{"http", "https", "ftp"} {
		input := validInput()
		input["mirror_protocol"] = proto
		_, err := validate(t, input)
		require.NoError(t, err, proto)
	}

	input := validInput()
	input["mirror_protocol"] = "rsync"
	_, err := validate(t, input)
	require.Contains(t, fieldErrors(t, err), "mirror_protocol")
}

func TestMirrorProxy(t *testing.T) {
	input := validInput()
	input["mirror_proxy"] = "proxy without scheme"
	_, err := validate(t, input)
	require.Contains(t, fieldErrors(t, err), "mirror_proxy")

	input["mirror_proxy"] = "http://proxy.lan:3128"
	config, err := validate(t, input)
	require.NoError(t, err)
	require.Equal(t, "http://proxy.lan:3128", config.MirrorProxy)
}

func TestTasks(t *testing.T) {
	input := validInput()
	input["tasks"] = []string{}
	_, err := validate(t, input)
	require.Contains(t, fieldErrors(t, err), "tasks")

	input["tasks"] = []string{"standard", "quake-server"}
	_, err = validate(t, input)
	require.Contains(t, fieldErrors(t, err), "tasks")

	input["tasks"] = []string{"gnome-desktop", "print-server", "web-server"}
	_, err = validate(t, input)
	require.NoError(t, err)
}

func TestCreateUser(t *testing.T) {
	input := validInput()
	input["create_user"] = true

	_, err := validate(t, input)
	fields := fieldErrors(t, err)
	require.Contains(t, fields, "username")
	require.Contains(t, fields, "user_fullname")
	require.NotContains(t, fields, "user_password")

	input["username"] = "jdoe"
	input["user_fullname"] = "Jane Doe"
	config, err := validate(t, input)
	require.NoError(t, err)
	require.Equal(t, "", config.UserPassword)

	input["user_password"] = "short"
	_, err = validate(t, input)
	require.Contains(t, fieldErrors(t, err), "user_password")
}

func TestPasswordConfirmation(t *testing.T) {
	input := validInput()
	input["root_password"] = "longenough"
	input["root_password_confirmation"] = "different1"

	_, err := validate(t, input)
	require.Equal(t, schema.FieldErrors{"root_password": {"confirmation does not match"}}, fieldErrors(t, err))

	input["root_password_confirmation"] = "longenough"
	config, err := validate(t, input)
	require.NoError(t, err)
	require.Equal(t, "longenough", config.RootPassword)
}

func TestHardenedConfigExcludesFields(t *testing.T) {
	input := validInput()
	input["cis_compliant"] = true
	input["root_password"] = "short"
	delete(input, "partitioning_method")
	delete(input, "separate_home")

	config, err := validate(t, input)
	require.NoError(t, err)
	require.True(t, config.CISCompliant)
	require.Equal(t, "", config.RootPassword)
	require.Equal(t, preseed.PartitioningMethod(""), config.PartitioningMethod)

	input["partitioning_method"] = "not-a-method"
	config, err = validate(t, input)
	require.NoError(t, err)
	require.Equal(t, preseed.PartitioningMethod(""), config.PartitioningMethod)
}

func TestMalformedInput(t *testing.T) {
	v, err := schema.NewValidator()
	require.NoError(t, err)

	_, err = v.Validate([]byte("{"))
	require.ErrorIs(t, err, schema.ErrMalformedInput)

	_, err = v.Validate([]byte(`["not", "an", "object"]`))
	require.ErrorIs(t, err, schema.ErrMalformedInput)
}

func TestWrongTypes(t *testing.T) {
	input := validInput()
	input["create_user"] = "yes"
	input["tasks"] = "standard"

	_, err := validate(t, input)
	fields := fieldErrors(t, err)
	require.Contains(t, fields, "create_user")
	require.Contains(t, fields, "tasks")
}

func TestDocument(t *testing.T) {
	v, err := schema.NewValidator()
	require.NoError(t, err)
	doc := v.Document()
	require.NotNil(t, doc.Paths.Find("/preseed"))
	require.NotNil(t, doc.Paths.Find("/preseed/preview"))
	require.NotNil(t, doc.Paths.Find("/preseed/{id}"))
}
