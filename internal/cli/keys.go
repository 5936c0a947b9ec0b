package cli

import (
	"fmt"
	"strings"

	"databank/internal/common"
	"databank/internal/databank"
	"databank/internal/errors"

	"github.com/spf13/cobra"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage your AI provider API keys",
	Long: `Manage the AI provider keys stored with your account. The backend
keeps the key material; the show command only reports which providers have a
key configured.`,
}

var keysShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show which providers have a key configured",
	RunE:  runKeysShow,
}

var keysSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store a provider key or change the preferred provider",
	RunE:  runKeysSet,
}

var keysDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a provider's stored key",
	RunE:  runKeysDelete,
}

var (
	keysOutput       common.CommandConfig
	keysProvider     string
	keysMaterial     string
	keysFromVault    bool
	keysSetPreferred bool
)

func init() {
	keysShowCmd.Flags().StringVarP(&keysOutput.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	keysShowCmd.Flags().StringVar(&keysOutput.OutputFormat, "format", "json", "Output format: json")

	keysSetCmd.Flags().StringVar(&keysProvider, "provider", "", "Provider: openai, anthropic, or google")
	keysSetCmd.Flags().StringVar(&keysMaterial, "key", "", "API key material")
	keysSetCmd.Flags().BoolVar(&keysFromVault, "from-vault", false, "Read the key material from Vault instead of --key")
	keysSetCmd.Flags().BoolVar(&keysSetPreferred, "preferred", false, "Also mark this provider as preferred")
	_ = keysSetCmd.MarkFlagRequired("provider")

	keysDeleteCmd.Flags().StringVar(&keysProvider, "provider", "", "Provider: openai, anthropic, or google")
	_ = keysDeleteCmd.MarkFlagRequired("provider")

	keysCmd.AddCommand(keysShowCmd, keysSetCmd, keysDeleteCmd)
}

func runKeysShow(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	settings, err := rt.bank.APIKeys(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to fetch api key settings: %w", err)
	}
	return common.NewOutputHandler(rt.logger).HandleOutput(settings, keysOutput)
}

func runKeysSet(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	provider := strings.ToLower(strings.TrimSpace(keysProvider))

	material := keysMaterial
	if keysFromVault {
		if keysMaterial != "" {
			return errors.NewValidationError(errors.ErrCodeInvalidRequest,
				"--key and --from-vault are mutually exclusive", nil)
		}
		if rt.vault == nil {
			return errors.NewConfigError(errors.ErrCodeInvalidConfig,
				"vault is not enabled in the configuration", nil)
		}
		material, err = rt.vault.GetProviderKey(provider)
		if err != nil {
			return fmt.Errorf("failed to read %s key from vault: %w", provider, err)
		}
	}
	if material == "" && !keysSetPreferred {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"nothing to update: pass --key, --from-vault, or --preferred", nil)
	}

	var update databank.APIKeyUpdate
	if material != "" {
		switch provider {
		case "openai":
			update.OpenAIKey = &material
		case "anthropic":
			update.AnthropicKey = &material
		case "google":
			update.GoogleKey = &material
		default:
			return errors.NewValidationError(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("provider must be one of: %s", strings.Join(databank.Providers, ", ")), nil)
		}
	}
	if keysSetPreferred {
		update.PreferredProvider = &provider
	}

	settings, err := rt.bank.UpdateAPIKeys(cmd.Context(), update)
	if err != nil {
		return fmt.Errorf("failed to update api keys: %w", err)
	}

	rt.logger.Info("API key settings updated",
		"provider", provider,
		"preferred", settings.PreferredProvider)
	cmd.Printf("Provider %s updated. Preferred provider: %s\n", provider, settings.PreferredProvider)
	return nil
}

func runKeysDelete(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	if err := rt.bank.DeleteAPIKey(cmd.Context(), keysProvider); err != nil {
		return fmt.Errorf("failed to delete api key: %w", err)
	}
	cmd.Printf("Deleted %s key\n", strings.ToLower(strings.TrimSpace(keysProvider)))
	return nil
}
