package ai

import "encoding/json"

// parseFallbackText 在响应无法解析出任何文本时返回，绝不向调用方传播空串。
const parseFallbackText = "Sorry - I could not parse the AI response."

// extractReply 按固定优先级从异构响应中提取纯文本回复，命中即停：
//  1. OpenAI/Groq 形态 choices[0].message.content；
//  2. 扁平键 reply、output、text（取第一个非空值）；
//  3. Google 形态 candidates[0].content（优先 parts[0].text）。
func extractReply(data map[string]interface{}) string {
	if choices, ok := data["choices"].([]interface{}); ok && len(choices) > 0 {
		if choice, ok := choices[0].(map[string]interface{}); ok {
			if message, ok := choice["message"].(map[string]interface{}); ok {
				if content, ok := message["content"].(string); ok && content != "" {
					return content
				}
			}
		}
	}

	for _, key := range []string{"reply", "output", "text"} {
		if s, ok := data[key].(string); ok && s != "" {
			return s
		}
	}

	if candidates, ok := data["candidates"].([]interface{}); ok && len(candidates) > 0 {
		if reply := extractCandidate(candidates[0]); reply != "" {
			return reply
		}
	}

	return parseFallbackText
}

// extractCandidate 处理 Google 响应的单个 candidate。
// content 是带 parts 数组的结构时取 parts[0].text；content 是其他值时直接采用；
// content 缺失时退回整个 candidate。
func extractCandidate(candidate interface{}) string {
	cand, ok := candidate.(map[string]interface{})
	if !ok {
		return asText(candidate)
	}

	content, exists := cand["content"]
	if !exists || content == nil {
		return asText(cand)
	}

	if m, ok := content.(map[string]interface{}); ok {
		if parts, ok := m["parts"].([]interface{}); ok {
			if len(parts) > 0 {
				if part, ok := parts[0].(map[string]interface{}); ok {
					if text, ok := part["text"].(string); ok {
						return text
					}
				}
			}
			return ""
		}
	}

	return asText(content)
}

// asText 将字符串直接返回，其余类型序列化为 JSON 文本作为兜底。
func asText(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
