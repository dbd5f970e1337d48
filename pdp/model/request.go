package model

import "github.com/hoteltrack/api/model"

// AccessRequest is the body of an explain request. Actor is taken from the
// authenticated context, never from the body.
type AccessRequest struct {
	Actor    *model.Actor   `json:"-"`
	Resource model.Resource `json:"resource" binding:"required" validate:"required,resource"`
	Action   model.Action   `json:"action" binding:"required" validate:"required,action"`
	Target   model.Target   `json:"target"`
}
