// Package providers registers every built-in AI provider with core.
package providers

import (
	_ "github.com/stake-plus/getfunded/src/ai/anthropic"
	_ "github.com/stake-plus/getfunded/src/ai/gemini"
	_ "github.com/stake-plus/getfunded/src/ai/openai"
)
