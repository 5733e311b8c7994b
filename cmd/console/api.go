package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/google/uuid"
	"github.com/jwebster45206/tribute-engine/internal/handlers"
	"github.com/jwebster45206/tribute-engine/pkg/sim"
)

func testConnection(client *http.Client, baseURL string) bool {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

// decodeResponse reads a response body into v, turning non-matching status
// codes into errors built from the API's ErrorResponse.
func decodeResponse(resp *http.Response, wantStatus int, action string, v any) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != wantStatus {
		var errorResp handlers.ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err != nil || errorResp.Error == "" {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
		}
		return fmt.Errorf("failed to %s: %s", action, errorResp.Error)
	}

	if v == nil {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", action, err)
	}
	return nil
}

// listRosters returns roster names in display order and a name to filename map.
func listRosters(client *http.Client, baseURL string) ([]string, map[string]string, error) {
	resp, err := client.Get(baseURL + "/v1/rosters")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	var rosterMap map[string]string
	if err := decodeResponse(resp, http.StatusOK, "list rosters", &rosterMap); err != nil {
		return nil, nil, err
	}

	names := make([]string, 0, len(rosterMap))
	for name := range rosterMap {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, rosterMap, nil
}

func createSimulation(client *http.Client, baseURL string, rosterFile string) (*sim.State, error) {
	jsonData, err := json.Marshal(handlers.CreateSimulationRequest{Roster: rosterFile})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := client.Post(baseURL+"/v1/simulations", "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	var st sim.State
	if err := decodeResponse(resp, http.StatusCreated, "create simulation", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func advanceSimulation(client *http.Client, baseURL string, id uuid.UUID) (*handlers.AdvanceResponse, error) {
	resp, err := client.Post(fmt.Sprintf("%s/v1/simulations/%s/advance", baseURL, id), "application/json", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	var adv handlers.AdvanceResponse
	if err := decodeResponse(resp, http.StatusOK, "advance simulation", &adv); err != nil {
		return nil, err
	}
	return &adv, nil
}

func deleteSimulation(client *http.Client, baseURL string, id uuid.UUID) error {
	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/v1/simulations/%s", baseURL, id), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return decodeResponse(resp, http.StatusNoContent, "delete simulation", nil)
}
