package flows

// PollBody is the body of every poll route.
type PollBody struct {
	Hash        string `json:"hash"`
	SecureNonce string `json:"secureNonce"`
}

// DataCreateBody announces an encrypted data exchange.
type DataCreateBody struct {
	Hash        string `json:"hash"`
	SecureNonce string `json:"secureNonce"`
	Type        string `json:"type"`
	Data        string `json:"data"`
}

// TransactionBatch carries items to a session. It is the add body and the nested
// transactions object of the create body.
type TransactionBatch struct {
	Hash         string `json:"hash"`
	SecureNonce  string `json:"secureNonce"`
	Transactions []Item `json:"transactions"`
}

// TransactCreateBody opens a new session.
type TransactCreateBody struct {
	Hash         string           `json:"hash"`
	Address      string           `json:"address"`
	DID          string           `json:"did"`
	PubKey       string           `json:"pubkey"`
	Transactions TransactionBatch `json:"transactions"`
}

// NewTransactCreateBody builds the create body for sessionHash.
func NewTransactCreateBody(in TransactInput, sessionHash, nonce string, items []Item) TransactCreateBody {
	return TransactCreateBody{
		Hash:    sessionHash,
		Address: in.Address,
		DID:     in.DID,
		PubKey:  in.PubKey,
		Transactions: TransactionBatch{
			Hash:         sessionHash,
			SecureNonce:  nonce,
			Transactions: items,
		},
	}
}
