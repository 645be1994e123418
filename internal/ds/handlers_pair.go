package ds

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

type pairRequestBody struct {
	PairingToken string `json:"pairing_token"`
	Role         string `json:"role"`
}

type pairResponseBody struct {
	Status string `json:"status"`
}

// handlePair implements POST /pair: it gates neither key material nor
// authentication (spec.md section 4.4).
func (s *Server) handlePair(c *echo.Context) error {
	var req pairRequestBody
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, pairResponseBody{Status: "invalid_token"})
	}

	status := s.pairing.Rendezvous(req.PairingToken, req.Role)
	return c.JSON(http.StatusOK, pairResponseBody{Status: status})
}
