package dto

// RestriccionRequest is bound from POST and PUT /v1/restricciones.
// At least one scope must be present; the service checks it.
type RestriccionRequest struct {
	UserID             *string `json:"userId"             validate:"omitempty,uuid"`
	VentanaID          *string `json:"ventanaId"          validate:"omitempty,uuid"`
	BancaID            *string `json:"bancaId"            validate:"omitempty,uuid"`
	SalesCutoffMinutes *int    `json:"salesCutoffMinutes" validate:"omitempty,min=0,max=1440"`
	Priority           int     `json:"priority"           validate:"min=0"`
	IsActive           *bool   `json:"isActive"`
}

// CutoffQuery is bound from GET /v1/restricciones/cutoff.
type CutoffQuery struct {
	UserID    string `form:"userId"    validate:"omitempty,uuid"`
	VentanaID string `form:"ventanaId" validate:"omitempty,uuid"`
	BancaID   string `form:"bancaId"   validate:"omitempty,uuid"`
}

type CutoffResponse struct {
	SalesCutoffMinutes int `json:"salesCutoffMinutes"`
}
