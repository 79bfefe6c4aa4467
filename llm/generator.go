// Package llm turns fused retrieval evidence into a grounded natural
// language answer.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/graphclinic/gdmrag/model"
)

// systemPrompt instructs the model to answer strictly from the provided
// evidence, in the user's language.
const systemPrompt = `你是一名妊娠期糖尿病领域的医学问答助手。
请仅根据提供的参考资料回答问题，不要编造参考资料之外的内容。
如果参考资料不足以回答问题，请明确说明。回答使用与问题相同的语言。`

// NoContextAnswer is returned when retrieval produced no usable evidence.
const NoContextAnswer = "抱歉，我无法在知识库中找到相关信息来回答您的问题。"

// Answer is a generated response with its provenance.
type Answer struct {
	Text        string   `json:"text"`
	Sources     []string `json:"sources,omitempty"`
	UsedContext bool     `json:"used_context"`
}

// Generator produces an answer to a question from fused evidence.
type Generator interface {
	Generate(ctx context.Context, question string, evidence *model.FusedContext) (*Answer, error)
}

// BuildPrompt renders the user prompt: the evidence block followed by the
// question.
func BuildPrompt(question string, evidence *model.FusedContext) string {
	var b strings.Builder
	b.WriteString("参考资料：\n")
	b.WriteString(evidence.Text())
	fmt.Fprintf(&b, "\n\n问题：%s", question)
	return b.String()
}
