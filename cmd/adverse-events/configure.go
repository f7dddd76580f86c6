// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/krishna-gramener/adverse-events/internal/credentials"
	"github.com/krishna-gramener/adverse-events/internal/settings"
)

// formNotifier prints the provider's signals to stderr.
type formNotifier struct {
	cmd *cobra.Command
}

func (n *formNotifier) ShowForm() {
	fmt.Fprintln(n.cmd.ErrOrStderr(), `Endpoints are not configured. Run "adverse-events configure".`)
}

func (n *formNotifier) Ready() {
	fmt.Fprintln(n.cmd.ErrOrStderr(), "Settings saved.")
}

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Store the token, OpenAI and Gemini endpoint URLs",
	Long: `Configure saves the three endpoint settings (token_url, openai_url,
gemini_url) to the settings store and performs a token exchange to check
them. Values not given as flags are prompted for on stdin; pressing enter
keeps the stored value.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, store, err := newProvider(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		in := bufio.NewReader(cmd.InOrStdin())
		out := cmd.ErrOrStderr()
		vals := make(map[string]string, len(settings.RequiredKeys))

		for _, key := range settings.RequiredKeys {
			flagName := strings.ReplaceAll(key, "_", "-")
			v, _ := cmd.Flags().GetString(flagName)
			if v == "" {
				current, _, err := store.Get(cmd.Context(), key)
				if err != nil {
					return err
				}
				v, err = prompt(in, out, key, current)
				if err != nil {
					return err
				}
			}
			vals[key] = v
		}

		sess, err := provider.Submit(cmd.Context(), credentials.Values{
			TokenURL:  vals[settings.KeyTokenURL],
			OpenAIURL: vals[settings.KeyOpenAIURL],
			GeminiURL: vals[settings.KeyGeminiURL],
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Token exchange with %s succeeded.\n", sess.TokenURL)
		return nil
	},
}

// prompt asks for key, offering current as the default.
func prompt(in *bufio.Reader, out io.Writer, key, current string) (string, error) {
	if current != "" {
		fmt.Fprintf(out, "%s [%s]: ", key, current)
	} else {
		fmt.Fprintf(out, "%s: ", key)
	}
	line, err := in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return current, nil
	}
	return line, nil
}

func init() {
	configureCmd.Flags().String("token-url", "", "credential exchange endpoint")
	configureCmd.Flags().String("openai-url", "", "chat-completions endpoint used for the search term")
	configureCmd.Flags().String("gemini-url", "", "generative-model endpoint used for extraction and causality")

	rootCmd.AddCommand(configureCmd)
}
