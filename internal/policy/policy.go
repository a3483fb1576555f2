// Package policy 决定截图之后做什么：复制、保存、标注或贴图。
//
// 配置给出默认行为，命令行参数覆盖配置。执行顺序固定为
// 剪贴板 → 保存 → 展示（标注或贴图，至多一个），每一步独立，
// 前一步失败不影响后一步。
package policy

import (
	"context"
	"image"

	"github.com/sirupsen/logrus"

	"snip/internal/config"
)

// Presentation 截图后的展示方式
type Presentation int

const (
	PresentNone     Presentation = iota // 不展示
	PresentAnnotate                     // 打开标注窗口
	PresentPin                          // 贴到屏幕上
)

func (p Presentation) String() string {
	switch p {
	case PresentAnnotate:
		return "annotate"
	case PresentPin:
		return "pin"
	}
	return "none"
}

// Flags 命令行显式指定的意图
type Flags struct {
	Annotate bool
	Pin      bool
	Save     bool
	Output   string // 显式保存路径，非空时隐含 Save
}

// Plan 合并配置和参数之后的执行计划
type Plan struct {
	Copy    bool
	Save    bool
	Output  string
	Present Presentation
}

// Resolve 合并配置默认值和命令行参数。
// 未指定标注或贴图时默认打开标注窗口，但显式 --save 会取消这一默认行为；
// 配置中的 auto_save 不影响默认展示。
func Resolve(cfg config.Screenshot, f Flags) Plan {
	explicitSave := f.Save || f.Output != ""

	plan := Plan{
		Copy:   cfg.CopyToClipboard,
		Save:   cfg.AutoSave || explicitSave,
		Output: f.Output,
	}

	switch {
	case f.Annotate:
		plan.Present = PresentAnnotate
	case f.Pin:
		plan.Present = PresentPin
	case !explicitSave:
		plan.Present = PresentAnnotate
	}
	return plan
}

// Copier 剪贴板
type Copier interface {
	CopyImage(ctx context.Context, img image.Image) error
}

// Saver 文件保存
type Saver interface {
	Save(img image.Image, explicit string) (string, error)
}

// Presenter 展示层
type Presenter interface {
	Annotate(ctx context.Context, img image.Image) error
	Pin(ctx context.Context, img image.Image) error
}

// Step 步骤名称
type Step string

const (
	StepCopy     Step = "copy"
	StepSave     Step = "save"
	StepAnnotate Step = "annotate"
	StepPin      Step = "pin"
)

// Outcome 单个步骤的结果
type Outcome struct {
	Step Step
	Path string // 仅保存步骤
	Err  error
}

// Report 执行报告，按执行顺序排列
type Report struct {
	Outcomes []Outcome
}

// Failed 返回失败的步骤
func (r *Report) Failed() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}

// SavedPath 返回保存路径，未保存时为空
func (r *Report) SavedPath() string {
	for _, o := range r.Outcomes {
		if o.Step == StepSave && o.Err == nil {
			return o.Path
		}
	}
	return ""
}

// Steps 返回执行过的步骤
func (r *Report) Steps() []Step {
	steps := make([]Step, len(r.Outcomes))
	for i, o := range r.Outcomes {
		steps[i] = o.Step
	}
	return steps
}

// Executor 执行计划
type Executor struct {
	clip      Copier
	saver     Saver
	presenter Presenter
	log       logrus.FieldLogger
}

// NewExecutor 创建执行器
func NewExecutor(clip Copier, saver Saver, presenter Presenter, log logrus.FieldLogger) *Executor {
	return &Executor{
		clip:      clip,
		saver:     saver,
		presenter: presenter,
		log:       log,
	}
}

// Execute 按固定顺序执行计划中的步骤
func (e *Executor) Execute(ctx context.Context, img image.Image, plan Plan) *Report {
	report := &Report{}
	record := func(o Outcome) {
		if o.Err != nil {
			e.log.WithError(o.Err).WithField("step", o.Step).Error("post-capture step failed")
		}
		report.Outcomes = append(report.Outcomes, o)
	}

	if plan.Copy {
		record(Outcome{Step: StepCopy, Err: e.clip.CopyImage(ctx, img)})
	}

	if plan.Save {
		path, err := e.saver.Save(img, plan.Output)
		record(Outcome{Step: StepSave, Path: path, Err: err})
	}

	switch plan.Present {
	case PresentAnnotate:
		record(Outcome{Step: StepAnnotate, Err: e.presenter.Annotate(ctx, img)})
	case PresentPin:
		record(Outcome{Step: StepPin, Err: e.presenter.Pin(ctx, img)})
	}

	return report
}
