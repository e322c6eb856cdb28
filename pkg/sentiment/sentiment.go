// Package sentiment 提供了基于 VADER 极性得分的粗粒度情感分类。
// 情感只是附加信息，任何内部故障都被吞掉并退回 neutral，绝不阻塞请求。
package sentiment

import "github.com/jonreiter/govader"

// 分类结果标签。
const (
	Positive = "positive"
	Negative = "negative"
	Neutral  = "neutral"
)

// 极性阈值：compound 得分高于 0.1 为 positive，低于 -0.1 为 negative。
const threshold = 0.1

// Classifier 将消息文本映射到 {positive, negative, neutral}。
type Classifier interface {
	Classify(text string) string
}

type vaderClassifier struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// New 创建一个基于 VADER 词典的分类器。
func New() Classifier {
	return &vaderClassifier{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// Classify 实现 Classifier 接口。打分过程中的任何 panic 都被吞掉并返回 neutral。
func (c *vaderClassifier) Classify(text string) (label string) {
	defer func() {
		if r := recover(); r != nil {
			label = Neutral
		}
	}()

	if c == nil || c.analyzer == nil {
		return Neutral
	}

	polarity := c.analyzer.PolarityScores(text).Compound
	switch {
	case polarity > threshold:
		return Positive
	case polarity < -threshold:
		return Negative
	default:
		return Neutral
	}
}
