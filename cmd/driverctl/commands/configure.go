package commands

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fivetwenty-io/driverkit/internal/constants"
	"github.com/fivetwenty-io/driverkit/pkg/driverkit"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// cliConfig is the on-disk shape of ~/.driverctl/config.yml.
type cliConfig struct {
	BaseURL      string `yaml:"base-url,omitempty"`
	APIKey       string `yaml:"api-key,omitempty"`
	AccessToken  string `yaml:"access-token,omitempty"`
	ClientID     string `yaml:"client-id,omitempty"`
	ClientSecret string `yaml:"client-secret,omitempty"`
	Database     string `yaml:"database,omitempty"`
	ProjectID    string `yaml:"project-id,omitempty"`
	SecretKey    string `yaml:"secret-key,omitempty"`
	Output       string `yaml:"output,omitempty"`
}

// NewConfigureCommand creates the configure command.
func NewConfigureCommand() *cobra.Command {
	var baseURL string

	cmd := &cobra.Command{
		Use:   "configure VENDOR",
		Short: "Store credentials for a vendor",
		Long: `Interactively store credentials in $HOME/.driverctl/config.yml.

The API key is read from the terminal without echo.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := driverkit.ParseVendor(args[0]); err != nil {
				return err
			}

			fmt.Printf("API key for %s: ", args[0])

			keyBytes, err := term.ReadPassword(int(syscall.Stdin))

			fmt.Println()

			if err != nil {
				return fmt.Errorf("reading API key: %w", err)
			}

			apiKey := strings.TrimSpace(string(keyBytes))
			if apiKey == "" {
				reader := bufio.NewReader(os.Stdin)

				line, _ := reader.ReadString('\n')

				apiKey = strings.TrimSpace(line)
			}

			config := cliConfig{
				BaseURL: baseURL,
				APIKey:  apiKey,
			}

			path, err := writeConfig(&config)
			if err != nil {
				return err
			}

			fmt.Println("Saved configuration to", path)

			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "", "vendor API base URL override")

	return cmd
}

func writeConfig(config *cliConfig) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}

	configDir := filepath.Join(home, ".driverctl")
	if err := os.MkdirAll(configDir, constants.ConfigDirPerm); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return "", fmt.Errorf("encoding config: %w", err)
	}

	path := filepath.Join(configDir, "config.yml")
	if err := os.WriteFile(path, data, constants.ConfigFilePerm); err != nil {
		return "", fmt.Errorf("writing config: %w", err)
	}

	return path, nil
}
