package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"vendazap/internal/ai"
)

const viaCEPBaseURL = "https://viacep.com.br/ws"

// cepLookupTimeout bounds the external call so a slow postal service never
// stalls a conversation turn.
const cepLookupTimeout = 5 * time.Second

// CEPService resolves Brazilian postal codes through ViaCEP
type CEPService struct {
	baseURL    string
	httpClient *http.Client
}

// NewCEPService creates a new CEP lookup service
func NewCEPService() *CEPService {
	return &CEPService{
		baseURL: viaCEPBaseURL,
		httpClient: &http.Client{
			Timeout: cepLookupTimeout,
		},
	}
}

// NewCEPServiceWithBaseURL creates a CEP service pointing at a custom
// endpoint (tests use this with httptest servers).
func NewCEPServiceWithBaseURL(baseURL string) *CEPService {
	s := NewCEPService()
	s.baseURL = baseURL
	return s
}

type viaCEPResponse struct {
	CEP        string `json:"cep"`
	Logradouro string `json:"logradouro"`
	Bairro     string `json:"bairro"`
	Localidade string `json:"localidade"`
	UF         string `json:"uf"`
	Erro       bool   `json:"erro"`
}

// Lookup resolves a normalized 8-digit CEP. Unknown codes return
// ai.ErrCEPNotFound; transport problems come back wrapped so callers can
// tell unavailability from absence.
func (s *CEPService) Lookup(ctx context.Context, cep string) (*ai.CEPAddress, error) {
	ctx, cancel := context.WithTimeout(ctx, cepLookupTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/%s/json/", s.baseURL, cep)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("erro ao montar consulta de CEP: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("erro ao consultar ViaCEP: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest {
		return nil, ai.ErrCEPNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ViaCEP retornou status %d", resp.StatusCode)
	}

	var body viaCEPResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("erro ao decodificar resposta do ViaCEP: %w", err)
	}

	if body.Erro {
		return nil, ai.ErrCEPNotFound
	}

	return &ai.CEPAddress{
		CEP:          cep,
		Street:       body.Logradouro,
		Neighborhood: body.Bairro,
		City:         body.Localidade,
		State:        body.UF,
	}, nil
}
