package common

import (
	"fmt"
	"net/http"

	"pcbaerp/internal/form"
	"pcbaerp/internal/response"
)

// BulkRequest is the request body for bulk action endpoints.
type BulkRequest struct {
	IDs    []string `json:"ids"`
	Action string   `json:"action"`
	// Status is the target for the "status" action.
	Status string `json:"status,omitempty"`
}

// BulkResponse is the response for bulk action endpoints.
type BulkResponse struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}

// Bulk handles POST /{Path}/bulk. "delete" needs ?confirm=true; "status"
// moves each record through the normal edit path so transitions are checked.
func (res *Resource[T]) Bulk(w http.ResponseWriter, r *http.Request) {
	var req BulkRequest
	if err := response.DecodeBody(r, &req); err != nil {
		response.Err(w, "invalid body", http.StatusBadRequest)
		return
	}
	switch req.Action {
	case "delete":
		if !Confirmed(r) {
			RequireConfirmation(w, fmt.Sprintf("delete %d records", len(req.IDs)))
			return
		}
	case "status":
		if req.Status == "" {
			response.Err(w, "status is required for the status action", http.StatusBadRequest)
			return
		}
	default:
		response.Err(w, "invalid action: "+req.Action, http.StatusBadRequest)
		return
	}

	resp := BulkResponse{Errors: []string{}}
	ctx := r.Context()
	for _, id := range req.IDs {
		var err error
		switch req.Action {
		case "delete":
			err = res.Repo().Delete(ctx, id)
		case "status":
			_, err = res.Edit(ctx, id, func(d *form.Draft[T]) error {
				return form.UpdateField(d, "status", req.Status)
			})
		}
		if err != nil {
			resp.Failed++
			resp.Errors = append(resp.Errors, id+": "+err.Error())
			continue
		}
		resp.Success++
	}
	response.JSON(w, resp)
}
