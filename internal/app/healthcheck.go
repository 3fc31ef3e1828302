package app

import (
	"net/http"
)

func (app *Application) GetHealth(w http.ResponseWriter, r *http.Request) {
	status := "UP"
	systemInfo := SystemInfo{
		Version:     version,
		Environment: app.config.Env,
	}

	resp := HealthcheckResponse{
		Status:       status,
		Connectivity: app.gate.Status().String(),
		SystemInfo:   systemInfo,
	}

	err := app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
