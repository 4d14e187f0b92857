package usecase

import "errors"

const (
	CodeValidation         = "VALIDATION_ERROR"
	CodePipelineNotFound   = "PIPELINE_NOT_FOUND"
	CodeStageNotFound      = "STAGE_NOT_FOUND"
	CodeLeadNotFound       = "LEAD_NOT_FOUND"
	CodePipelineExists     = "PIPELINE_ALREADY_EXISTS"
	CodeStageExists        = "STAGE_ALREADY_EXISTS"
	CodeLeadInStage        = "LEAD_ALREADY_IN_STAGE"
	CodeLeadEmailAmbiguous = "LEAD_EMAIL_AMBIGUOUS"
	CodeDatabase           = "DATABASE_ERROR"
)

type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

type TechnicalError struct {
	Code    string
	Message string
	Err     error
}

func (e *TechnicalError) Error() string {
	return e.Message
}

func (e *TechnicalError) Unwrap() error {
	return e.Err
}

func IsTechnicalError(err error) bool {
	var te *TechnicalError
	return errors.As(err, &te)
}

func domainErr(code, msg string) error {
	return &DomainError{Code: code, Message: msg}
}

func technicalErr(msg string, err error) error {
	return &TechnicalError{Code: CodeDatabase, Message: msg + ": " + err.Error(), Err: err}
}
