package webutils

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

func WriteFileHeaders(w http.ResponseWriter, name string) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+name+"\"")
}

func WriteFile(w http.ResponseWriter, in io.Reader, name string) {
	WriteFileHeaders(w, name)
	if _, err := io.Copy(w, in); err != nil {
		log.Printf("[web] Error when writing file %q: %v", name, err)
	}
}

func WriteJson(w http.ResponseWriter, data interface{}) {
	res, err := json.Marshal(data)
	if err != nil {
		WriteError(w, errors.Wrapf(err, "Failed to marshal"))
	} else {
		w.Header().Set("Content-Type", "application/json")
		WriteResult(w, res)
	}
}

func WriteYaml(w http.ResponseWriter, data interface{}) {
	res, err := yaml.Marshal(data)
	if err != nil {
		WriteError(w, errors.Wrapf(err, "Failed to marshal"))
	} else {
		w.Header().Set("Content-Type", "application/yaml")
		WriteResult(w, res)
	}
}

// ReadJson decodes a POST body into v.
func ReadJson(r *http.Request, v interface{}) error {
	if r.Method != http.MethodPost {
		return errors.Errorf("Invalid http method %q", r.Method)
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Wrapf(err, "Failed to unmarshal")
	}
	return nil
}

func WriteResult(w http.ResponseWriter, data []byte) {
	_, err := w.Write(data)
	if err != nil {
		log.Printf("[web] Error when writing response: %v", err)
	}
}

type jError struct {
	Error string `json:"error"`
}

// WriteError answers with a JSON error body and status 400.
func WriteError(w http.ResponseWriter, err error) {
	WriteErrorStatus(w, http.StatusBadRequest, err)
}

func WriteErrorStatus(w http.ResponseWriter, status int, err error) {
	data, merr := json.Marshal(&jError{Error: err.Error()})
	if merr != nil {
		log.Printf("[web] Error marshaling error '%v': %v", err, merr)
		return
	}
	log.Printf("[web] HERR: %v", string(data))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	WriteResult(w, data)
}
