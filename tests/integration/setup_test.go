package integration

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang/protobuf/ptypes/timestamp"
	"github.com/hyperledger/fabric-chaincode-go/pkg/cid"
	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-protos-go/peer"

	"github.com/rxledger/dlt-rx/chaincode/credential-sbt/credentialsbt"
	"github.com/rxledger/dlt-rx/chaincode/prescription-registry/prescriptionregistry"
)

// fixture wires both contracts against in-process world state, with the
// prescription registry's cross-chaincode lookups routed to the credential
// contract the same way the peer would route them on a shared channel.
type fixture struct {
	now time.Time

	credState map[string][]byte
	rxState   map[string][]byte

	credContract *credentialsbt.SmartContract
	rxContract   *prescriptionregistry.SmartContract
}

func newFixture() *fixture {
	return &fixture{
		now:          time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		credState:    make(map[string][]byte),
		rxState:      make(map[string][]byte),
		credContract: new(credentialsbt.SmartContract),
		rxContract:   prescriptionregistry.NewSmartContract(),
	}
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

// credCtx returns a transaction context against the credential ledger
func (f *fixture) credCtx(caller string) *txContext {
	return &txContext{
		stub:   &ledgerStub{fixture: f, state: f.credState},
		caller: caller,
	}
}

// rxCtx returns a transaction context against the prescription ledger
func (f *fixture) rxCtx(caller string) *txContext {
	return &txContext{
		stub:   &ledgerStub{fixture: f, state: f.rxState, crossChaincode: true, caller: caller},
		caller: caller,
	}
}

// txContext implements contractapi.TransactionContextInterface
type txContext struct {
	stub   *ledgerStub
	caller string
}

func (c *txContext) GetStub() shim.ChaincodeStubInterface {
	return c.stub
}

func (c *txContext) GetClientIdentity() cid.ClientIdentity {
	return &identity{id: c.caller}
}

// identity implements cid.ClientIdentity for a fixed caller
type identity struct {
	cid.ClientIdentity
	id string
}

func (i *identity) GetID() (string, error) {
	return i.id, nil
}

// ledgerStub implements the subset of shim.ChaincodeStubInterface the
// contracts use. Unused methods panic via the embedded interface.
type ledgerStub struct {
	shim.ChaincodeStubInterface

	fixture        *fixture
	state          map[string][]byte
	crossChaincode bool
	caller         string
	events         map[string][]byte
}

func (s *ledgerStub) GetState(key string) ([]byte, error) {
	return s.state[key], nil
}

func (s *ledgerStub) PutState(key string, value []byte) error {
	s.state[key] = value
	return nil
}

func (s *ledgerStub) DelState(key string) error {
	delete(s.state, key)
	return nil
}

func (s *ledgerStub) SetEvent(name string, payload []byte) error {
	if s.events == nil {
		s.events = make(map[string][]byte)
	}
	s.events[name] = payload
	return nil
}

func (s *ledgerStub) GetTxID() string {
	return fmt.Sprintf("tx-%d", s.fixture.now.UnixNano())
}

func (s *ledgerStub) GetTxTimestamp() (*timestamp.Timestamp, error) {
	return &timestamp.Timestamp{
		Seconds: s.fixture.now.Unix(),
		Nanos:   int32(s.fixture.now.Nanosecond()),
	}, nil
}

// InvokeChaincode routes credential lookups from the prescription registry
// to the credential contract, as the peer would for same-channel calls.
func (s *ledgerStub) InvokeChaincode(chaincodeName string, args [][]byte, channel string) peer.Response {
	if !s.crossChaincode || len(args) < 2 {
		return peer.Response{Status: shim.ERROR, Message: "unexpected cross-chaincode call"}
	}

	function := string(args[0])
	if function != "GetCredentialByHolder" {
		return peer.Response{Status: shim.ERROR, Message: fmt.Sprintf("unknown function %s", function)}
	}

	holder := string(args[1])
	credential, err := s.fixture.credContract.GetCredentialByHolder(s.fixture.credCtx(holder), holder)
	if err != nil {
		return peer.Response{Status: shim.ERROR, Message: err.Error()}
	}

	payload, err := json.Marshal(credential)
	if err != nil {
		return peer.Response{Status: shim.ERROR, Message: err.Error()}
	}
	return peer.Response{Status: shim.OK, Payload: payload}
}
