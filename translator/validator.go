package translator

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// MaxAttempts 一个批次最多请求模型的次数（首次 + 5 次重试）
const MaxAttempts = 6

var (
	// ErrTransportFailure 模型调用本身失败，不重试
	ErrTransportFailure = errors.New("transport failure")
	// ErrContentIntegrity 响应条数不符或原样返回，重试耗尽
	ErrContentIntegrity = errors.New("content integrity failure")
	// ErrIO 文档打开或保存失败
	ErrIO = errors.New("document i/o failure")
	// ErrUnsupportedFormat 输出格式不是 pdf、markdown、md、html 之一
	ErrUnsupportedFormat = errors.New("unsupported output format")
)

// ContentIntegrityError 重试耗尽后的失败，携带尝试次数
type ContentIntegrityError struct {
	Attempts int
	Last     error
}

func (e *ContentIntegrityError) Error() string {
	if e.Last != nil {
		return fmt.Sprintf("%s after %d attempts: %v", ErrContentIntegrity, e.Attempts, e.Last)
	}
	return fmt.Sprintf("%s after %d attempts", ErrContentIntegrity, e.Attempts)
}

func (e *ContentIntegrityError) Unwrap() error {
	return ErrContentIntegrity
}

// TranslationMapping 原文到译文的映射，只在校验通过后构造
type TranslationMapping map[string]string

// Lookup 查找译文，没有条目时返回原文
func (m TranslationMapping) Lookup(text string) string {
	if t, ok := m[text]; ok && t != "" {
		return t
	}
	return text
}

// State 校验状态机的状态
type State int

const (
	StateRequesting State = iota
	StateValidating
	StateRetrying
	StateAccepted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRequesting:
		return "requesting"
	case StateValidating:
		return "validating"
	case StateRetrying:
		return "retrying"
	case StateAccepted:
		return "accepted"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Transition 一次状态转移
type Transition struct {
	From    State
	To      State
	Attempt int
	Reason  string
}

// Outcome 校验的最终结果。State 为 StateAccepted 时 Mapping 有效，为 StateFailed 时 Err 非空。
type Outcome struct {
	State    State
	Mapping  TranslationMapping
	Attempts int
	Err      error
}

// ValidatorOption IntegrityValidator 选项
type ValidatorOption func(*IntegrityValidator)

// WithObserver 每次状态转移时回调
func WithObserver(fn func(Transition)) ValidatorOption {
	return func(v *IntegrityValidator) {
		v.observer = fn
	}
}

// WithValidatorLogger 设置日志记录器
func WithValidatorLogger(l *zap.Logger) ValidatorOption {
	return func(v *IntegrityValidator) {
		if l != nil {
			v.logger = l
		}
	}
}

// IntegrityValidator 请求模型翻译一个批次，并校验响应条数与是否原样返回
type IntegrityValidator struct {
	model    Model
	builder  *RequestBuilder
	observer func(Transition)
	logger   *zap.Logger
}

// NewIntegrityValidator 创建校验器
func NewIntegrityValidator(model Model, builder *RequestBuilder, opts ...ValidatorOption) *IntegrityValidator {
	v := &IntegrityValidator{
		model:   model,
		builder: builder,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *IntegrityValidator) transition(from, to State, attempt int, reason string) State {
	v.logger.Debug("状态转移",
		zap.Stringer("from", from),
		zap.Stringer("to", to),
		zap.Int("attempt", attempt),
		zap.String("reason", reason))
	if v.observer != nil {
		v.observer(Transition{From: from, To: to, Attempt: attempt, Reason: reason})
	}
	return to
}

// Run 运行状态机直到 Accepted 或 Failed。重试立即发出，不做退避。
func (v *IntegrityValidator) Run(ctx context.Context, batch FragmentBatch, targetLanguage string) Outcome {
	if len(batch) == 0 {
		return Outcome{State: StateAccepted, Mapping: TranslationMapping{}}
	}

	prompt, err := v.builder.Build(batch, targetLanguage)
	if err != nil {
		return Outcome{State: StateFailed, Err: err}
	}

	state := StateRequesting
	attempt := 1
	var response string
	var lastErr error

	for {
		switch state {
		case StateRequesting:
			resp, err := v.model.MakeRequest(ctx, prompt)
			if err != nil {
				v.transition(state, StateFailed, attempt, err.Error())
				return Outcome{
					State:    StateFailed,
					Attempts: attempt,
					Err:      fmt.Errorf("%w: %w", ErrTransportFailure, err),
				}
			}
			response = resp
			state = v.transition(state, StateValidating, attempt, "response received")

		case StateValidating:
			translated, err := v.check(batch, response)
			if err == nil {
				v.transition(state, StateAccepted, attempt, "ok")
				return Outcome{
					State:    StateAccepted,
					Mapping:  zipMapping(batch, translated),
					Attempts: attempt,
				}
			}
			lastErr = err
			if attempt >= MaxAttempts {
				v.transition(state, StateFailed, attempt, err.Error())
				return Outcome{
					State:    StateFailed,
					Attempts: attempt,
					Err:      &ContentIntegrityError{Attempts: attempt, Last: lastErr},
				}
			}
			v.logger.Warn("模型响应未通过校验，重试",
				zap.Int("attempt", attempt),
				zap.Error(err))
			state = v.transition(state, StateRetrying, attempt, err.Error())

		case StateRetrying:
			attempt++
			state = v.transition(state, StateRequesting, attempt, "retry")
		}
	}
}

// check 解析响应并校验条数与是否原样返回
func (v *IntegrityValidator) check(batch FragmentBatch, response string) ([]string, error) {
	translated, err := v.builder.Parse(response)
	if err != nil {
		return nil, err
	}
	if len(translated) != len(batch) {
		return nil, fmt.Errorf("条数不符: 期望 %d，实际 %d", len(batch), len(translated))
	}
	if isEcho(batch, translated) {
		return nil, errors.New("响应与原文完全相同")
	}
	return translated, nil
}

func isEcho(batch FragmentBatch, translated []string) bool {
	for i := range batch {
		if batch[i] != translated[i] {
			return false
		}
	}
	return true
}

func zipMapping(batch FragmentBatch, translated []string) TranslationMapping {
	m := make(TranslationMapping, len(batch))
	for i, text := range batch {
		m[text] = translated[i]
	}
	return m
}
