package auth

import (
	"fmt"
	"io"
	"strings"
)

// WriteAPIKeyGuide writes step-by-step instructions for creating a Lucid API key
func WriteAPIKeyGuide(w io.Writer) {
	rule := strings.Repeat("=", 72)
	lines := []string{
		rule,
		"LUCID API KEY GUIDE",
		rule,
		"",
		"lucidexport calls the Lucid REST API with a bearer API key.",
		"",
		"STEP 1: Open the Lucid developer portal",
		"   - Sign in at https://lucid.app and open the Developer Portal",
		"   - Create an application if you do not have one yet",
		"",
		"STEP 2: Create an API key",
		"   - In the application, open 'API Keys' and create a new key",
		"   - Grant it read access to documents (lucidchart.document.content:readonly)",
		"",
		"STEP 3: Give the key to lucidexport, any one of:",
		"   - lucidexport auth login            (stored in the keyring or an encrypted file)",
		"   - export " + APIKeyEnv + "=<key>     (or put it in .env)",
		"   - lucid.api_key in the config file",
		"   - lucidexport --api-key <key> ...",
		"",
		"The key grants access to every document your account can read.",
		"Never commit it or share it.",
		rule,
	}
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}

// WriteQuickGuide writes a one-line reminder for experienced users
func WriteQuickGuide(w io.Writer) {
	fmt.Fprintf(w, "No API key found. Run 'lucidexport auth login' or set %s.\n", APIKeyEnv)
}
