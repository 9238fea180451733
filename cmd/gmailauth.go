package cmd

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"

	"songsmith/internal/mail"
)

var gmailAuthCmd = &cobra.Command{
	Use:   "gmail-auth",
	Short: "Authorize read-only access to the inbox that receives sign-in links",
	Args:  cobra.NoArgs,
	RunE:  runGmailAuth,
}

func init() {
	rootCmd.AddCommand(gmailAuthCmd)
}

func runGmailAuth(cmd *cobra.Command, args []string) error {
	credentials, token := gmailFiles()
	oauthCfg, err := mail.OAuthConfig(credentials)
	if err != nil {
		return err
	}

	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()
	tok, err := mail.Authorize(cmd.Context(), oauthCfg, func(url string) (string, error) {
		fmt.Fprintf(out, "Open this URL, approve access and paste the code:\n%s\n> ", url)
		return in.ReadString('\n')
	})
	if err != nil {
		return err
	}
	if err := mail.SaveToken(token, tok); err != nil {
		return err
	}
	fmt.Fprintf(out, "Token saved to %s\n", token)
	return nil
}
