package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"databank/internal/auth"
	"databank/internal/common"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the access token",
	Long: `Sign in against the identity provider and exchange the resulting
assertion for a backend access token. The token is persisted to the
credentials file and attached to every subsequent command automatically.

With --google, an authorization URL is printed and a short-lived local
listener waits for the browser redirect instead of asking for a password.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and sign in",
	Args:  cobra.NoArgs,
	RunE:  runRegister,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and clear the stored access token",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user's profile",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

var (
	loginEmail    string
	loginPassword string
	loginGoogle   bool
	registerEmail string
	registerUser  string
	registerPass  string
	whoamiConfig  common.CommandConfig
)

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Account password (prompted when omitted)")
	loginCmd.Flags().BoolVar(&loginGoogle, "google", false, "Sign in with Google instead of a password")

	registerCmd.Flags().StringVar(&registerEmail, "email", "", "Account email")
	registerCmd.Flags().StringVar(&registerUser, "username", "", "Public username")
	registerCmd.Flags().StringVar(&registerPass, "password", "", "Account password (prompted when omitted)")
	_ = registerCmd.MarkFlagRequired("email")
	_ = registerCmd.MarkFlagRequired("username")

	whoamiCmd.Flags().StringVarP(&whoamiConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	whoamiCmd.Flags().StringVar(&whoamiConfig.OutputFormat, "format", "json", "Output format: json")
}

func runLogin(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	session, err := rt.session(cmd.Context())
	if err != nil {
		return err
	}

	if loginGoogle {
		return runGoogleLogin(cmd, rt, session)
	}

	email := loginEmail
	if email == "" {
		email, err = promptLine("Email: ")
		if err != nil {
			return err
		}
	}
	password := loginPassword
	if password == "" {
		password, err = promptLine("Password: ")
		if err != nil {
			return err
		}
	}

	if err := session.SignIn(cmd.Context(), email, password); err != nil {
		return err
	}

	fmt.Printf("Signed in as %s\n", email)
	return nil
}

func runGoogleLogin(cmd *cobra.Command, rt *runtime, session *auth.Session) error {
	flow, err := auth.NewGoogleFlow(rt.cfg.Auth.Google, rt.logger)
	if err != nil {
		return err
	}

	googleToken, err := flow.Run(cmd.Context())
	if err != nil {
		return err
	}

	provider, err := auth.NewRESTProvider(rt.cfg.Auth, rt.logger)
	if err != nil {
		return err
	}
	identity, err := provider.SignInWithGoogle(cmd.Context(), googleToken)
	if err != nil {
		return err
	}

	if err := session.SignInWithAssertion(cmd.Context(), identity); err != nil {
		return err
	}

	fmt.Println("Signed in with Google")
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	session, err := rt.session(cmd.Context())
	if err != nil {
		return err
	}

	password := registerPass
	if password == "" {
		password, err = promptLine("Password: ")
		if err != nil {
			return err
		}
	}

	if err := session.SignUp(cmd.Context(), registerEmail, registerUser, password); err != nil {
		return err
	}

	fmt.Printf("Account created for %s, signed in\n", registerEmail)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	session, err := rt.session(cmd.Context())
	if err != nil {
		return err
	}

	session.Logout(cmd.Context())
	fmt.Println("Signed out")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return err
	}

	profile, err := rt.bank.Me(cmd.Context())
	if err != nil {
		return err
	}

	outputHandler := common.NewOutputHandler(logger)
	return outputHandler.HandleOutput(profile, whoamiConfig)
}

func promptLine(prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	value := strings.TrimSpace(line)
	if value == "" {
		return "", fmt.Errorf("input cannot be empty")
	}
	return value, nil
}
