package classifier

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

const DefaultTimeout = 25 * time.Second

// Config 分类器配置，构造时注入，不在调用路径里读环境变量
type Config struct {
	APIKey        string
	Model         string
	BaseURL       string
	Timeout       time.Duration
	ImageTimeout  time.Duration
	MaxImageBytes int64
}

// Enabled 没有配置密钥时走直通模式
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

type Option func(*Adapter)

// WithGenerator 替换默认的 Gemini 客户端
func WithGenerator(g Generator) Option {
	return func(a *Adapter) { a.gen = g }
}

func WithImageLoader(l *ImageLoader) Option {
	return func(a *Adapter) { a.images = l }
}

func WithLogger(l interface{ Printf(string, ...any) }) Option {
	return func(a *Adapter) { a.logger = l }
}

// Adapter 分类器适配层：标准化请求、解析响应、兜底为 FLAGGED
type Adapter struct {
	gen     Generator
	images  *ImageLoader
	timeout time.Duration
	logger  interface{ Printf(string, ...any) }
}

func New(cfg Config, opts ...Option) *Adapter {
	a := &Adapter{
		timeout: cfg.Timeout,
		logger:  log.Default(),
	}
	if a.timeout <= 0 {
		a.timeout = DefaultTimeout
	}
	httpClient := &http.Client{}
	if cfg.Enabled() {
		a.gen = NewGeminiClient(cfg.APIKey, cfg.Model, cfg.BaseURL, httpClient)
	}
	a.images = NewImageLoader(httpClient, cfg.ImageTimeout, cfg.MaxImageBytes)
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Disabled 未配置分类器时的直通结果
func Disabled() Result {
	return Result{
		Decision: DecisionApproved,
		Reason:   ReasonDisabled,
		Score:    scorePtr(0),
	}
}

// FailSafe 任何分类失败都按可疑处理，交给人工复核
func FailSafe(cause error) Result {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	return Result{
		Decision:    DecisionFlagged,
		Reason:      truncate(fmt.Sprintf("AI Error: %s - Manual Review Required", msg), MaxReasonLength),
		Categories:  []string{CategorySystem},
		Score:       scorePtr(0),
		SystemError: true,
	}
}

// Classify 永远返回一个结果，不返回 error
func (a *Adapter) Classify(ctx context.Context, in Input) (res Result) {
	if a.gen == nil {
		a.logger.Printf("classifier: no api key configured, skipping analysis")
		return Disabled()
	}

	defer func() {
		if r := recover(); r != nil {
			a.logger.Printf("classifier: panic during analysis: %v", r)
			res = FailSafe(fmt.Errorf("panic: %v", r))
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var img *Image
	if in.ImageRef != nil && strings.TrimSpace(*in.ImageRef) != "" {
		loaded, err := a.images.Load(ctx, *in.ImageRef)
		if err != nil {
			// 图片失败不影响文本审核
			a.logger.Printf("classifier: image skipped: %v", err)
		} else {
			img = loaded
		}
	}

	text, err := a.gen.Generate(ctx, BuildPrompt(in), img)
	if err != nil {
		a.logger.Printf("classifier: analysis failed: %v", err)
		return FailSafe(err)
	}
	res, err = Parse(text)
	if err != nil {
		a.logger.Printf("classifier: unusable response: %v", err)
		return FailSafe(err)
	}
	return res
}

// BuildPrompt 生成审核 prompt，要求模型只返回 JSON
func BuildPrompt(in Input) string {
	body := "No content"
	if in.Body != nil && strings.TrimSpace(*in.Body) != "" {
		body = *in.Body
	}
	return fmt.Sprintf(`You are an AI Content Moderator for a community platform.
Analyze the following post (and the attached image, if any) for safety.

Title: %q
Content: %q

Rules:
1. Hate Speech, Harassment, Violence, Self-Harm and Sexual Content are STRICTLY PROHIBITED.
2. Spam or Scams are PROHIBITED.
3. Political or controversial topics are ALLOWED but should be flagged if inflammatory.
4. If the content is safe, helpful, or neutral, status should be "APPROVED".
5. If the content violates rules or is ambiguous, status should be "FLAGGED".
6. If the content is clearly illegal or severe, status should be "REJECTED".

Respond ONLY with a valid JSON object in this format:
{
  "status": "APPROVED" | "FLAGGED" | "REJECTED",
  "reason": "Short explanation of the decision (max 20 words)",
  "categories": ["Toxicity" | "Hate Speech" | "Harassment" | "Spam" | "NSFW"],
  "score": number between 0 and 1
}`, in.Title, body)
}
