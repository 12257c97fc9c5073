package bridge

import (
	"fmt"
	"strings"

	"github.com/aretw0/scorebridge/pkg/domain"
)

const (
	msgInitTimeout = "Runtime initialization timed out. Please check your internet connection and try again."
	msgInitNetwork = "Failed to download the scoring runtime. Please check your internet connection."
	initPrefix     = "Failed to initialize runtime"
)

// classifyInit turns a worker error frame received during provisioning into a
// classified error. The frame's code wins; without one the text decides.
func classifyInit(msg domain.Message) *domain.Error {
	kind := msg.Code
	switch kind {
	case domain.KindInitTimeout, domain.KindInitNetworkFailure, domain.KindInitOtherFailure:
	default:
		kind = classifyInitText(msg.Error)
	}
	return initError(kind, msg.Error, nil)
}

func classifyInitText(text string) domain.ErrorKind {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "timeout"), strings.Contains(lower, "timed out"):
		return domain.KindInitTimeout
	case strings.Contains(lower, "failed to fetch"):
		return domain.KindInitNetworkFailure
	default:
		return domain.KindInitOtherFailure
	}
}

// initError builds the user-facing provisioning error for kind.
func initError(kind domain.ErrorKind, detail string, cause error) *domain.Error {
	switch kind {
	case domain.KindInitTimeout:
		return domain.NewError(kind, msgInitTimeout, cause)
	case domain.KindInitNetworkFailure:
		return domain.NewError(kind, msgInitNetwork, cause)
	default:
		if strings.HasPrefix(detail, initPrefix) {
			return domain.NewError(domain.KindInitOtherFailure, detail, cause)
		}
		return domain.NewError(domain.KindInitOtherFailure, fmt.Sprintf("%s: %s", initPrefix, detail), cause)
	}
}

// classifyEval turns a worker error frame received during an evaluation into a
// classified error.
func classifyEval(msg domain.Message) *domain.Error {
	switch msg.Code {
	case domain.KindEvalProgramInjection, domain.KindSerializationFailure, domain.KindEvalWorkerError:
		return domain.NewError(msg.Code, msg.Error, nil)
	default:
		return domain.NewError(domain.KindEvalWorkerError, msg.Error, nil)
	}
}
