package payment

// iVeri result statuses. Status 0 is approved; 1 is a soft decline that may
// be retried; anything else is a hard failure.
const (
	iveriStatusApproved = "0"
	iveriStatusRetry    = "1"
)

// iVeri commands
const (
	iveriCommandDebit  = "Debit"
	iveriCommandCredit = "Credit"
)

type iveriEnvelope struct {
	Version        string           `json:"Version"`
	CertificateID  string           `json:"CertificateID"`
	ProductType    string           `json:"ProductType"`
	ProductVersion string           `json:"ProductVersion"`
	Direction      string           `json:"Direction"`
	Transaction    iveriTransaction `json:"Transaction"`
}

type iveriTransaction struct {
	ApplicationID     string       `json:"ApplicationID"`
	Command           string       `json:"Command"`
	Mode              string       `json:"Mode"`
	MerchantReference string       `json:"MerchantReference"`
	MerchantTrace     string       `json:"MerchantTrace,omitempty"`
	Amount            string       `json:"Amount"`
	Currency          string       `json:"Currency"`
	PAN               string       `json:"PAN,omitempty"`
	PANFormat         string       `json:"PANFormat,omitempty"`
	ExpiryDate        string       `json:"ExpiryDate,omitempty"`
	CardSecurityCode  string       `json:"CardSecurityCode,omitempty"`
	CardHolderName    string       `json:"CardHolderName,omitempty"`
	CardHolderEmail   string       `json:"CardHolderEmail,omitempty"`
	RequestID         string       `json:"RequestID,omitempty"`
	Result            *iveriResult `json:"Result,omitempty"`
}

type iveriResult struct {
	Status      string `json:"Status"`
	Code        string `json:"Code"`
	Description string `json:"Description"`
	Source      string `json:"Source"`
}

type iveriResponse struct {
	Transaction iveriTransaction `json:"Transaction"`
}
