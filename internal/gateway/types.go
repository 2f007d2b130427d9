package gateway

// Status é o estado de conexão normalizado de uma instância.
type Status string

const (
	StatusOpen       Status = "open"
	StatusClose      Status = "close"
	StatusConnecting Status = "connecting"
)

type InstanceDetails struct {
	InstanceName      string `json:"instanceName"`
	Status            Status `json:"status"`
	Owner             string `json:"owner"`
	OwnerPhone        string `json:"ownerPhone,omitempty"`
	ProfileName       string `json:"profileName"`
	ProfilePictureURL string `json:"profilePictureUrl"`
}

type CreateResult struct {
	InstanceName string `json:"instanceName"`
	InstanceID   string `json:"instanceId"`
	Status       string `json:"status"`
}

// Connection é a resposta de /instance/connect. Code é o conteúdo do QR code.
type Connection struct {
	Code        string `json:"code"`
	PairingCode string `json:"pairingCode,omitempty"`
	Count       int    `json:"count,omitempty"`
}
