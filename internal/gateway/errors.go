package gateway

import (
	"errors"
	"fmt"
)

// ErrNoCode indica que o gateway respondeu ao connect sem QR code.
var ErrNoCode = errors.New("a API não retornou um QR code")

// Error é uma falha do gateway: resposta não-2xx, corpo inválido ou erro de rede.
// StatusCode é zero quando não houve resposta HTTP.
type Error struct {
	Operation  string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return e.Message
}

// NotFoundError indica que o gateway não conhece a instância.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("instância %q não encontrada na API", e.Name)
}

// IsNotFound reporta se err (ou algum erro embrulhado) é um NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
