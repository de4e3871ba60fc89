package preseedapi

type ObjectReference struct {
	Href string `json:"href"`
	Id   string `json:"id"`
	Kind string `json:"kind"`
}

type Error struct {
	ObjectReference

	Code        string `json:"code"`
	OperationId string `json:"operation_id"`
	Reason      string `json:"reason"`

	// Details is set for validation failures, it maps each rejected field
	// to the reasons it was rejected.
	Details interface{} `json:"details,omitempty"`
}

// Preview is the response of a preview request.
type Preview struct {
	Success        bool   `json:"success"`
	PreviewContent string `json:"preview_content"`
}

// PreseedReference points to a stored preseed document.
type PreseedReference struct {
	ObjectReference

	Name string `json:"name"`
}
