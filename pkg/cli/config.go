/*
Package cli facilitates building command-line applications that serve a vehicle accessory. It
defines a [Config] type that can be used to register common command-line flags (using the Golang
flag package), environment variable equivalents, and an accessory configuration file.

The package uses [keyring]'s platform-agnostic interface for storing the account's refresh token in
an OS-dependent credential store.

# Examples

	import flag

	config, err := NewConfig(FlagAll)
	if err != nil {
		panic(err)
	}
	config.RegisterCommandLineFlags() // Adds command-line flags for the accessory name, OAuth, etc.
	flag.Parse()
	config.ReadFromEnvironment()      // Fills in missing fields using environment variables
	if err := config.LoadFile(); err != nil {
		panic(err)
	}
	config.LoadCredentials()          // Prompt for Keyring password if needed

	accessory, err := config.Accessory()
	if err != nil {
		panic(err)
	}
	defer accessory.Close()

Values are taken from the first source that sets them, in this order: command-line flags,
environment variables, the accessory file, and finally the system keyring (refresh token only).
*/
package cli

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/99designs/keyring"
	"gopkg.in/yaml.v3"

	"github.com/teslamotors/vehicle-accessory/internal/log"
	"github.com/teslamotors/vehicle-accessory/pkg/accessory"
	"github.com/teslamotors/vehicle-accessory/pkg/account"
	"github.com/teslamotors/vehicle-accessory/pkg/session"
)

// Environment variable names used are used by [Config.ReadFromEnvironment] to set common parameters.
const (
	EnvTeslaAccessoryName   = "TESLA_ACCESSORY_NAME"
	EnvTeslaRefreshToken    = "TESLA_REFRESH_TOKEN"
	EnvTeslaTokenName       = "TESLA_TOKEN_NAME"
	EnvTeslaTokenFile       = "TESLA_TOKEN_FILE"
	EnvTeslaVIN             = "TESLA_VIN"
	EnvTeslaAccessoryConfig = "TESLA_ACCESSORY_CONFIG"
	EnvTeslaTimeout         = "TESLA_TIMEOUT"
	EnvTeslaKeyringType     = "TESLA_KEYRING_TYPE"
	EnvTeslaKeyringPass     = "TESLA_KEYRING_PASSWORD"
	EnvTeslaKeyringPath     = "TESLA_KEYRING_PATH"
	EnvTeslaKeyringDebug    = "TESLA_KEYRING_DEBUG"
	EnvTeslaVerbose         = "TESLA_VERBOSE"
)

// DefaultName is used when no accessory name is configured.
const DefaultName = "Tesla"

// Flag controls what options should be scanned from the command line and/or environment variables.
type Flag int

func (f Flag) isSet(other Flag) bool {
	return (f & other) == other
}

const (
	FlagVIN       Flag = 1 // Enable VIN option.
	FlagOAuth     Flag = 2 // Enable refresh token options.
	FlagAccessory Flag = 4 // Enable accessory name, configuration file, and timeout options.
	FlagAll       Flag = FlagVIN | FlagOAuth | FlagAccessory
)

var (
	ErrNoTokenSpecified = errors.New("refresh token location not provided")
	ErrKeyNotFound      = keyring.ErrKeyNotFound
)

// AccessoryFile is the format of the file named by the -config option. JSON documents are valid.
type AccessoryFile struct {
	Name    string        `yaml:"name"`
	Token   string        `yaml:"token"`
	VIN     string        `yaml:"vin"`
	Timeout time.Duration `yaml:"timeout"`
}

// Config fields determine how the accessory authenticates to Tesla's backend and which vehicle it
// serves.
type Config struct {
	Flags            Flag   // Controls which set of environment variables/CLI flags to use.
	Name             string // Accessory display name, used as the log prefix.
	KeyringTokenName string // Username for refresh token in system keyring
	VIN              string
	TokenFilename    string
	ConfigFilename   string
	Timeout          time.Duration // Bounds each remote call. Zero uses the session default.
	Backend          keyring.Config
	BackendType      backendType
	Debug            bool // Enable keyring debug messages
	Verbose          bool // Set by $TESLA_VERBOSE

	password     *string
	refreshToken string
	tokens       *account.TokenCache
	session      *session.Session
}

func NewConfig(flags Flag) (*Config, error) {
	c := Config{
		Flags: flags,
		Backend: keyring.Config{
			ServiceName:              keyringServiceName,
			KeychainTrustApplication: true,
			KeyCtlScope:              "user",
		},
	}
	c.BackendType = backendType{&c}
	c.Backend.KeychainPasswordFunc = c.getPassword
	c.Backend.FilePasswordFunc = c.getPassword

	return &c, nil
}

// RegisterCommandLineFlags adds c's options to the default flag set.
func (c *Config) RegisterCommandLineFlags() {
	c.RegisterFlags(flag.CommandLine)
}

// RegisterFlags adds c's options to fs.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	if c.Flags.isSet(FlagVIN) {
		fs.StringVar(&c.VIN, "vin", "", "Vehicle Identification Number. Informational only; the first vehicle on the account is used. Defaults to $TESLA_VIN.")
	}
	if c.Flags.isSet(FlagAccessory) {
		fs.StringVar(&c.Name, "name", "", "Accessory display `name`. Defaults to $TESLA_ACCESSORY_NAME.")
		fs.StringVar(&c.ConfigFilename, "config", "", "Accessory configuration `file` (YAML or JSON). Defaults to $TESLA_ACCESSORY_CONFIG.")
		fs.DurationVar(&c.Timeout, "timeout", 0, "Timeout for each remote call. Defaults to $TESLA_TIMEOUT or 10s.")
	}
	if c.Flags.isSet(FlagOAuth) {
		fs.StringVar(&c.KeyringTokenName, "token-name", "", "System keyring `name` for refresh token. Defaults to $TESLA_TOKEN_NAME.")
		fs.StringVar(&c.TokenFilename, "token-file", "", "`File` containing refresh token. Defaults to $TESLA_TOKEN_FILE.")

		var names []string
		for _, name := range keyring.AvailableBackends() {
			names = append(names, string(name))
		}
		sort.Strings(names)
		fs.Var(&c.BackendType, "keyring-type", "Keyring `type` ("+strings.Join(names, "|")+"). Defaults to $TESLA_KEYRING_TYPE.")
		fs.StringVar(&c.Backend.FileDir, "keyring-file-dir", keyringDirectory, "keyring `directory` for file-backed keyring types")
		fs.BoolVar(&c.Debug, "keyring-debug", false, "Enable keyring debug logging")
	}
}

// ReadFromEnvironment populates c using environment variables. Values that are already populated
// are not overwritten.
//
// Calling ReadFromEnvironment after flag.Parse() (or other initialization method) will prevent the
// environment from overriding explicit command-line parameters and avoid potentially misleading
// debug log messages.
func (c *Config) ReadFromEnvironment() {
	if _, ok := os.LookupEnv(EnvTeslaVerbose); ok {
		c.Verbose = true
	}
	if c.Flags.isSet(FlagVIN) {
		if c.VIN == "" {
			c.VIN = os.Getenv(EnvTeslaVIN)
			log.Debug("Set VIN to '%s'", c.VIN)
		}
	}
	if c.Flags.isSet(FlagAccessory) {
		if c.Name == "" {
			c.Name = os.Getenv(EnvTeslaAccessoryName)
			log.Debug("Set accessory name to '%s'", c.Name)
		}
		if c.ConfigFilename == "" {
			c.ConfigFilename = os.Getenv(EnvTeslaAccessoryConfig)
			log.Debug("Set accessory config file to '%s'", c.ConfigFilename)
		}
		if c.Timeout == 0 {
			if value := os.Getenv(EnvTeslaTimeout); value != "" {
				timeout, err := time.ParseDuration(value)
				if err != nil {
					log.Warning("Ignoring invalid %s: %s", EnvTeslaTimeout, err)
				} else {
					c.Timeout = timeout
					log.Debug("Set timeout to %s", c.Timeout)
				}
			}
		}
	}
	if c.Flags.isSet(FlagOAuth) {
		if c.refreshToken == "" {
			if token := os.Getenv(EnvTeslaRefreshToken); token != "" {
				c.refreshToken = strings.TrimSpace(token)
				log.Debug("Set refresh token from %s", EnvTeslaRefreshToken)
			}
		}
		if c.KeyringTokenName == "" && c.TokenFilename == "" {
			c.KeyringTokenName = os.Getenv(EnvTeslaTokenName)
			log.Debug("Set refresh token name to '%s'", c.KeyringTokenName)

			c.TokenFilename = os.Getenv(EnvTeslaTokenFile)
			log.Debug("Set refresh token file to '%s'", c.TokenFilename)
		}
		if c.BackendType.String() == string(keyring.InvalidBackend) {
			if err := c.BackendType.Set(os.Getenv(EnvTeslaKeyringType)); err == nil {
				log.Debug("Set keyring type to '%s'", c.BackendType)
			}
		}
		if c.password == nil {
			password := os.Getenv(EnvTeslaKeyringPass)
			c.password = &password
			if len(password) > 0 {
				log.Debug("Set keyring File Password to %s", strings.Repeat("*", len("hunter2")))
			}
		}
		if c.Backend.FileDir == "" {
			c.Backend.FileDir = os.Getenv(EnvTeslaKeyringPath)
			log.Debug("Set keyring File Path to '%s'", c.Backend.FileDir)
		}
		if !c.Debug {
			_, c.Debug = os.LookupEnv(EnvTeslaKeyringDebug)
			log.Debug("Set keyring Debug Logging to '%v'", c.Debug)
		}
	}
}

// LoadFile reads c.ConfigFilename, if set, and fills in fields that are still empty.
func (c *Config) LoadFile() error {
	if c.ConfigFilename == "" {
		return nil
	}
	data, err := os.ReadFile(c.ConfigFilename)
	if err != nil {
		return fmt.Errorf("failed to read accessory config: %w", err)
	}
	var file AccessoryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse accessory config %s: %w", c.ConfigFilename, err)
	}
	log.Debug("Loaded accessory config from %s", c.ConfigFilename)
	if c.Name == "" {
		c.Name = file.Name
	}
	if c.VIN == "" {
		c.VIN = file.VIN
	}
	if c.Timeout == 0 {
		c.Timeout = file.Timeout
	}
	if c.refreshToken == "" {
		c.refreshToken = strings.TrimSpace(file.Token)
	}
	return nil
}

// DisplayName returns the configured accessory name or DefaultName.
func (c *Config) DisplayName() string {
	if c.Name == "" {
		return DefaultName
	}
	return c.Name
}

// LoadCredentials attempts to load the refresh token, prompting for a keyring password if needed.
// Call this method before [Config.Accessory] to prevent interactive prompts from counting against
// timeouts.
func (c *Config) LoadCredentials() error {
	if c.Flags.isSet(FlagOAuth) {
		if _, err := c.RefreshToken(); err != nil {
			return err
		}
	}
	return nil
}

// RefreshToken returns the configured refresh token. Explicit tokens (environment or accessory
// file) take priority over the token file, which takes priority over the keyring.
func (c *Config) RefreshToken() (string, error) {
	if c.refreshToken != "" {
		return c.refreshToken, nil
	}
	if c.TokenFilename != "" {
		token, err := os.ReadFile(c.TokenFilename)
		if err == nil {
			c.refreshToken = strings.TrimSpace(string(token))
			return c.refreshToken, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		// If the token file doesn't exist, fall through to trying to load from the system keyring.
	}
	if c.KeyringTokenName == "" {
		return "", ErrNoTokenSpecified
	}
	token, err := c.LoadTokenFromKeyring()
	if err != nil {
		return "", err
	}
	c.refreshToken = strings.TrimSpace(token)
	return c.refreshToken, nil
}

// Tokens returns the Auth Cache for the configured refresh token.
func (c *Config) Tokens() (*account.TokenCache, error) {
	if c.tokens != nil {
		return c.tokens, nil
	}
	token, err := c.RefreshToken()
	if err != nil {
		return nil, err
	}
	c.tokens = account.NewTokenCache(token)
	return c.tokens, nil
}

// Account returns a client for the configured Tesla account.
func (c *Config) Account() (*account.Account, error) {
	tokens, err := c.Tokens()
	if err != nil {
		return nil, err
	}
	return account.New(tokens, ""), nil
}

// Session returns the vehicle session for the configured account. Repeated calls return the same
// session.
func (c *Config) Session() (*session.Session, error) {
	if c.session != nil {
		return c.session, nil
	}
	acct, err := c.Account()
	if err != nil {
		return nil, err
	}
	s := session.New(acct, c.DisplayName())
	s.VIN = c.VIN
	if c.Timeout > 0 {
		s.Timeout = c.Timeout
	}
	c.session = s
	return s, nil
}

// Accessory returns a new accessory serving the configured vehicle. The caller should Close it.
func (c *Config) Accessory() (*accessory.Accessory, error) {
	s, err := c.Session()
	if err != nil {
		return nil, err
	}
	return accessory.New(c.DisplayName(), s), nil
}
