package services

// Result is the caller-facing outcome of a back-office operation. Every
// operation converts its failures into a Result; errors never cross the
// operation boundary, and messages are safe to show to an operator.
type Result struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// GenericFailureMessage hides collaborator fault details from callers.
// Handlers map it onto a 500 without echoing internals.
const GenericFailureMessage = "something went wrong, please try again"

const genericFailureMessage = GenericFailureMessage

func success(message string) Result {
	return Result{Success: true, Message: message}
}

func failure(message string) Result {
	return Result{Success: false, Message: message}
}

func validationFailure(fields map[string]string) Result {
	return Result{
		Success: false,
		Message: "validation failed",
		Errors:  fields,
	}
}
