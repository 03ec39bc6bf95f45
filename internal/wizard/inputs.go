package wizard

import "github.com/jonathan/cv-builder/internal/types"

// Input is the data collected by one wizard step.
type Input interface {
	step() Step
}

// SelectCVInput completes the select CV step.
type SelectCVInput struct {
	CVID string `json:"cvId" validate:"required"`
}

func (SelectCVInput) step() Step { return StepSelectCV }

// JobDetailsInput completes the job details step. Either the description or
// the URL of the posting is required.
type JobDetailsInput struct {
	JobDescription string `json:"jobDescription" validate:"required_without=JobURL"`
	JobURL         string `json:"jobUrl" validate:"omitempty,url"`
	CompanyName    string `json:"companyName"`
	JobTitle       string `json:"jobTitle"`
}

func (JobDetailsInput) step() Step { return StepJobDetails }

// ContextInput completes the context step.
type ContextInput types.LetterContext

func (ContextInput) step() Step { return StepContext }
