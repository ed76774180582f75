package deviceflow

import (
	"fmt"
	"os"
)

// runPrompt surfaces the verification URI and user code exactly once
// per flow. If the host supplied a PromptFunc it is given first
// refusal: a negative return aborts the flow (KindHostCancelled), zero
// asks the engine to fall back to its own stderr message, and positive
// means the host already displayed it. With no PromptFunc at all, the
// engine always prints to stderr.
func runPrompt(hook PromptFunc, authz DeviceAuthorization) error {
	prompt := PromptOAuthDevice{VerificationURI: authz.VerificationURI, UserCode: authz.UserCode}

	if hook == nil {
		printPrompt(prompt)
		return nil
	}

	switch result := hook(prompt); {
	case result < 0:
		return &FlowError{Kind: KindHostCancelled, Detail: "the connection was told to give up on the OAuth device prompt"}
	case result == 0:
		printPrompt(prompt)
		return nil
	default:
		return nil
	}
}

func printPrompt(p PromptOAuthDevice) {
	fmt.Fprintf(os.Stderr, "Visit %s and enter the code: %s\n", p.VerificationURI, p.UserCode)
}
