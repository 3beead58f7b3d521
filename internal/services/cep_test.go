package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"vendazap/internal/ai"
)

func TestCEPLookupSuccess(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"cep":"01310-100","logradouro":"Avenida Paulista","bairro":"Bela Vista","localidade":"São Paulo","uf":"SP"}`))
	}))
	defer server.Close()

	svc := NewCEPServiceWithBaseURL(server.URL)
	addr, err := svc.Lookup(context.Background(), "01310100")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/01310100/json/" {
		t.Errorf("request path = %s, expected /01310100/json/", gotPath)
	}
	if addr.Street != "Avenida Paulista" {
		t.Errorf("street = %s", addr.Street)
	}
	if addr.Neighborhood != "Bela Vista" {
		t.Errorf("neighborhood = %s", addr.Neighborhood)
	}
	if addr.City != "São Paulo" || addr.State != "SP" {
		t.Errorf("city/state = %s/%s", addr.City, addr.State)
	}
	if addr.CEP != "01310100" {
		t.Errorf("cep = %s, expected normalized input back", addr.CEP)
	}
}

func TestCEPLookupNotFound(t *testing.T) {
	t.Run("corpo com erro", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"erro": true}`))
		}))
		defer server.Close()

		_, err := NewCEPServiceWithBaseURL(server.URL).Lookup(context.Background(), "99999999")
		if !errors.Is(err, ai.ErrCEPNotFound) {
			t.Errorf("expected ErrCEPNotFound, got %v", err)
		}
	})

	t.Run("status 400", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		_, err := NewCEPServiceWithBaseURL(server.URL).Lookup(context.Background(), "00000000")
		if !errors.Is(err, ai.ErrCEPNotFound) {
			t.Errorf("expected ErrCEPNotFound, got %v", err)
		}
	})
}

func TestCEPLookupUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewCEPServiceWithBaseURL(server.URL).Lookup(context.Background(), "01310100")
	if err == nil {
		t.Fatal("expected error")
	}
	// Indisponibilidade não pode se passar por CEP inexistente
	if errors.Is(err, ai.ErrCEPNotFound) {
		t.Error("server error must not map to not-found")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("error should carry the status: %v", err)
	}
}
