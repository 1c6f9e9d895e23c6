package workflow

// genericFailureMessage is shown when the server reports a failed job
// without saying why.
const genericFailureMessage = "processing failed without an error message"

// JobFailedError is a terminal business outcome: the server finished the
// job with status=failed. It is not a transport fault.
type JobFailedError struct {
	JobID   string
	Message string
}

func (e *JobFailedError) Error() string {
	return e.Message
}
