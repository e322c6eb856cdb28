package ai

import (
	"fmt"
	"strings"

	"aira-go/internal/config"
)

// provider 是适配器支持的封闭服务商集合。
type provider string

const (
	providerGroq      provider = "groq"
	providerGoogle    provider = "google"
	providerGeneric   provider = "generic"
	providerLocalEcho provider = "local-echo"
)

const (
	groqEndpoint = "https://api.groq.com/openai/v1/chat/completions"
	googleHost   = "https://generativelanguage.googleapis.com"
)

// resolution 是解析结果：报文格式与目标端点。
type resolution struct {
	provider provider
	url      string
}

// resolve 根据配置确定目标服务商与端点，整个请求周期只做一次。
// 未显式指定服务商时按 key 前缀识别（gsk_ 为 Groq，AIza 为 Google）；
// 显式配置的 api_url 永远优先于推断；key 与 url 均缺失时返回本地回显哨兵。
func resolve(cfg config.AIConfig) resolution {
	apiURL := cfg.APIURL
	apiKey := cfg.APIKey
	name := strings.ToLower(cfg.Provider)

	if name == "" && apiKey != "" {
		switch {
		case strings.HasPrefix(apiKey, "gsk_"):
			name = "groq"
		case strings.HasPrefix(apiKey, "AIza"):
			name = "google"
		}
	}

	if apiURL == "" && apiKey != "" {
		switch {
		case name == "groq":
			apiURL = groqEndpoint
		case name == "google" || strings.HasPrefix(apiKey, "AIza"):
			apiURL = fmt.Sprintf("%s/%s/models/%s:generateContent", googleHost, cfg.APIVersion, cfg.Model)
		}
	}

	if apiURL == "" && apiKey == "" {
		return resolution{provider: providerLocalEcho}
	}

	// 按最终端点确定报文格式，识别不了的走 generic
	switch {
	case name == "groq" || strings.Contains(apiURL, "groq.com"):
		return resolution{provider: providerGroq, url: apiURL}
	case strings.Contains(apiURL, "generativelanguage.googleapis.com"):
		return resolution{provider: providerGoogle, url: apiURL}
	default:
		return resolution{provider: providerGeneric, url: apiURL}
	}
}
