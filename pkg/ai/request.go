package ai

import (
	"math"
	"strconv"
	"strings"

	"aira-go/internal/config"
)

// personaInstruction 是固定的人设系统提示，对所有请求保持不变。
const personaInstruction = `You are Aira, a compassionate and empathetic mental health support AI designed specifically for Gen-Z students. Your purpose is to:

1. Listen actively and provide emotional support
2. Help users process their feelings and thoughts
3. Offer coping strategies and mental wellness tips
4. Be warm, understanding, and non-judgmental
5. Use casual, friendly language that resonates with Gen-Z
6. Recognize when someone needs professional help and suggest it appropriately

When asked "who are you" or similar questions, introduce yourself as: "I'm Aira, your mental health companion. I'm here to listen, support, and help you navigate your feelings and challenges. Think of me as a friendly ear whenever you need someone to talk to."

Always be supportive, never dismissive, and maintain a safe, confidential space for conversations.`

// buildRequest 为已解析的服务商构造出站请求头与负载。
func buildRequest(cfg config.AIConfig, res resolution, message string) (map[string]string, map[string]interface{}) {
	headers := providerHeaders(cfg, res)

	var payload map[string]interface{}
	switch res.provider {
	case providerGroq:
		// OpenAI 兼容格式
		payload = map[string]interface{}{
			"model": cfg.Model,
			"messages": []interface{}{
				map[string]interface{}{"role": "system", "content": personaInstruction},
				map[string]interface{}{"role": "user", "content": message},
			},
			"temperature": cfg.Temperature,
			"max_tokens":  cfg.MaxTokens,
		}
	case providerGoogle:
		payload = map[string]interface{}{
			"system_instruction": map[string]interface{}{
				"parts": []interface{}{map[string]interface{}{"text": personaInstruction}},
			},
			"contents": []interface{}{
				map[string]interface{}{
					"parts": []interface{}{map[string]interface{}{"text": message}},
				},
			},
		}
	default:
		payload = map[string]interface{}{
			"input":             message,
			"temperature":       cfg.Temperature,
			"max_output_tokens": cfg.MaxTokens,
		}
	}

	return headers, stringifyIDFields(payload).(map[string]interface{})
}

// buildProbeRequest 构造连通性探测用的最小请求。
func buildProbeRequest(cfg config.AIConfig, res resolution) (map[string]string, map[string]interface{}) {
	headers := providerHeaders(cfg, res)

	var payload map[string]interface{}
	switch res.provider {
	case providerGroq:
		payload = map[string]interface{}{
			"model":       cfg.Model,
			"messages":    []interface{}{map[string]interface{}{"role": "user", "content": "ping"}},
			"temperature": 0.0,
			"max_tokens":  16,
		}
	case providerGoogle:
		payload = map[string]interface{}{
			"contents": []interface{}{
				map[string]interface{}{
					"parts": []interface{}{map[string]interface{}{"text": "ping"}},
				},
			},
		}
	default:
		payload = map[string]interface{}{
			"input":             "ping",
			"temperature":       0.0,
			"max_output_tokens": 16,
		}
	}

	return headers, stringifyIDFields(payload).(map[string]interface{})
}

// providerHeaders 按服务商返回认证头。Google 使用 X-goog-api-key，
// 其余使用 Bearer；generic 在没有 key 时完全省略认证头。
func providerHeaders(cfg config.AIConfig, res resolution) map[string]string {
	headers := map[string]string{"Content-Type": "application/json"}
	switch res.provider {
	case providerGoogle:
		headers["X-goog-api-key"] = cfg.APIKey
	default:
		if cfg.APIKey != "" {
			headers["Authorization"] = "Bearer " + cfg.APIKey
		}
	}
	return headers
}

// stringifyIDFields 递归地把键名为 id、subject 或以 _id 结尾的数值字段改写为字符串，
// 嵌套的 map 与数组一并处理。部分上游服务商会拒绝数字形式的标识符。
func stringifyIDFields(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			if isIDKey(k) {
				if s, ok := numericString(item); ok {
					out[k] = s
					continue
				}
			}
			out[k] = stringifyIDFields(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = stringifyIDFields(item)
		}
		return out
	default:
		return v
	}
}

func isIDKey(k string) bool {
	return k == "id" || k == "subject" || strings.HasSuffix(k, "_id")
}

// numericString 将整型数值转成十进制字符串；非整型值保持原样。
func numericString(v interface{}) (string, bool) {
	switch n := v.(type) {
	case int:
		return strconv.Itoa(n), true
	case int32:
		return strconv.FormatInt(int64(n), 10), true
	case int64:
		return strconv.FormatInt(n, 10), true
	case uint:
		return strconv.FormatUint(uint64(n), 10), true
	case uint64:
		return strconv.FormatUint(n, 10), true
	case float64:
		// JSON 反序列化得到的整数是 float64
		if n == math.Trunc(n) && !math.IsInf(n, 0) {
			return strconv.FormatFloat(n, 'f', -1, 64), true
		}
	}
	return "", false
}
