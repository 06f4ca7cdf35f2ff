package credentialsbt

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/golang/protobuf/ptypes/timestamp"
	"github.com/hyperledger/fabric-chaincode-go/pkg/cid"
	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rxledger/dlt-rx/pkg/types"
)

// MockTransactionContext provides a mock transaction context for testing
type MockTransactionContext struct {
	mock.Mock
}

func (m *MockTransactionContext) GetStub() shim.ChaincodeStubInterface {
	args := m.Called()
	return args.Get(0).(shim.ChaincodeStubInterface)
}

func (m *MockTransactionContext) GetClientIdentity() cid.ClientIdentity {
	args := m.Called()
	return args.Get(0).(cid.ClientIdentity)
}

// MockChaincodeStub provides a stateful mock chaincode stub for testing.
// Unimplemented stub methods panic via the embedded interface.
type MockChaincodeStub struct {
	mock.Mock
	shim.ChaincodeStubInterface

	State  map[string][]byte
	Events map[string][]byte
	TxTime time.Time
}

func (m *MockChaincodeStub) GetState(key string) ([]byte, error) {
	m.Called(key)
	return m.State[key], nil
}

func (m *MockChaincodeStub) PutState(key string, value []byte) error {
	m.Called(key, value)
	m.State[key] = value
	return nil
}

func (m *MockChaincodeStub) DelState(key string) error {
	m.Called(key)
	delete(m.State, key)
	return nil
}

func (m *MockChaincodeStub) SetEvent(name string, payload []byte) error {
	m.Called(name, payload)
	m.Events[name] = payload
	return nil
}

func (m *MockChaincodeStub) GetTxTimestamp() (*timestamp.Timestamp, error) {
	m.Called()
	return &timestamp.Timestamp{Seconds: m.TxTime.Unix(), Nanos: int32(m.TxTime.Nanosecond())}, nil
}

func (m *MockChaincodeStub) GetTxID() string {
	m.Called()
	return "tx-test"
}

// MockClientIdentity provides a mock client identity for testing
type MockClientIdentity struct {
	mock.Mock
	cid.ClientIdentity
}

func (m *MockClientIdentity) GetID() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func newTestStub(now time.Time) *MockChaincodeStub {
	stub := &MockChaincodeStub{
		State:  make(map[string][]byte),
		Events: make(map[string][]byte),
		TxTime: now,
	}
	stub.On("GetState", mock.AnythingOfType("string")).Return()
	stub.On("PutState", mock.AnythingOfType("string"), mock.AnythingOfType("[]uint8")).Return()
	stub.On("DelState", mock.AnythingOfType("string")).Return()
	stub.On("SetEvent", mock.AnythingOfType("string"), mock.AnythingOfType("[]uint8")).Return()
	stub.On("GetTxTimestamp").Return()
	stub.On("GetTxID").Return()
	return stub
}

func newTestContext(stub *MockChaincodeStub, callerID string) *MockTransactionContext {
	identity := new(MockClientIdentity)
	identity.On("GetID").Return(callerID, nil)

	ctx := new(MockTransactionContext)
	ctx.On("GetStub").Return(stub)
	ctx.On("GetClientIdentity").Return(identity)
	return ctx
}

func assertRegistryCode(t *testing.T, err error, code string) {
	t.Helper()
	var regErr *types.RegistryError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, code, regErr.Code)
}

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func setupWithAdmin(t *testing.T, admin string) (*SmartContract, *MockChaincodeStub) {
	t.Helper()
	contract := new(SmartContract)
	stub := newTestStub(testNow)
	require.NoError(t, contract.InitLedger(newTestContext(stub, admin)))
	return contract, stub
}

func TestInitLedger_SetsDeployerAsAdmin(t *testing.T) {
	contract, stub := setupWithAdmin(t, "admin")

	var cfg types.AdminConfig
	require.NoError(t, json.Unmarshal(stub.State[adminConfigKey], &cfg))
	assert.Equal(t, []string{"admin"}, cfg.Authorizers)

	// Re-running InitLedger must not clobber the existing config.
	require.NoError(t, contract.InitLedger(newTestContext(stub, "intruder")))
	require.NoError(t, json.Unmarshal(stub.State[adminConfigKey], &cfg))
	assert.Equal(t, []string{"admin"}, cfg.Authorizers)
}

func TestIssueCredential_Success(t *testing.T) {
	contract, stub := setupWithAdmin(t, "admin")
	ctx := newTestContext(stub, "admin")

	credential, err := contract.IssueCredential(ctx, "doctor-1", "doctor", "license-hash-1", "cardiology", "ipfs://QmMeta", 2)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), credential.TokenID)
	assert.Equal(t, "doctor-1", credential.Holder)
	assert.Equal(t, types.CredentialDoctor, credential.CredentialType)
	assert.Equal(t, testNow, credential.IssuedAt)
	assert.Equal(t, testNow.AddDate(2, 0, 0), credential.ExpiresAt)
	assert.True(t, credential.IsActive)
	assert.Nil(t, credential.RevokedAt)

	resolved, err := contract.GetCredentialByHolder(ctx, "doctor-1")
	require.NoError(t, err)
	assert.Equal(t, credential.TokenID, resolved.TokenID)

	var event types.CredentialIssuedEvent
	require.NoError(t, json.Unmarshal(stub.Events[types.EventCredentialIssued], &event))
	assert.Equal(t, uint64(1), event.TokenID)
	assert.Equal(t, "doctor-1", event.Holder)
}

func TestIssueCredential_Unauthorized(t *testing.T) {
	contract, stub := setupWithAdmin(t, "admin")

	_, err := contract.IssueCredential(newTestContext(stub, "not-admin"), "doctor-1", "doctor", "license-hash-1", "", "", 1)
	assertRegistryCode(t, err, types.ErrCodeUnauthorized)
}

func TestIssueCredential_RejectsSecondLiveCredential(t *testing.T) {
	contract, stub := setupWithAdmin(t, "admin")
	ctx := newTestContext(stub, "admin")

	_, err := contract.IssueCredential(ctx, "doctor-1", "doctor", "license-hash-1", "", "", 1)
	require.NoError(t, err)

	_, err = contract.IssueCredential(ctx, "doctor-1", "pharmacist", "license-hash-2", "", "", 1)
	assertRegistryCode(t, err, types.ErrCodeInvalidHolder)
}

func TestIssueCredential_Validation(t *testing.T) {
	contract, stub := setupWithAdmin(t, "admin")
	ctx := newTestContext(stub, "admin")

	_, err := contract.IssueCredential(ctx, "holder-1", "nurse", "license-hash-1", "", "", 1)
	assertRegistryCode(t, err, types.ErrCodeInvalidCredentialType)

	_, err = contract.IssueCredential(ctx, "", "doctor", "license-hash-1", "", "", 1)
	assertRegistryCode(t, err, types.ErrCodeInvalidHolder)

	_, err = contract.IssueCredential(ctx, "holder-1", "doctor", "", "", "", 1)
	assertRegistryCode(t, err, types.ErrCodeInvalidLicenseHash)

	_, err = contract.IssueCredential(ctx, "holder-1", "doctor", "license-hash-1", "", "", 0)
	assertRegistryCode(t, err, types.ErrCodeInvalidValidityPeriod)
}

func TestRevokeCredential_Lifecycle(t *testing.T) {
	contract, stub := setupWithAdmin(t, "admin")
	ctx := newTestContext(stub, "admin")

	credential, err := contract.IssueCredential(ctx, "doctor-1", "doctor", "license-hash-1", "", "", 1)
	require.NoError(t, err)

	require.NoError(t, contract.RevokeCredential(ctx, credential.TokenID))

	revoked, err := contract.GetCredential(ctx, credential.TokenID)
	require.NoError(t, err)
	assert.False(t, revoked.IsActive)
	require.NotNil(t, revoked.RevokedAt)
	assert.Equal(t, testNow, *revoked.RevokedAt)

	// The holder index is cleared, so lookup by holder fails.
	_, err = contract.GetCredentialByHolder(ctx, "doctor-1")
	assertRegistryCode(t, err, types.ErrCodeNotFound)

	// Revocation is terminal.
	err = contract.RevokeCredential(ctx, credential.TokenID)
	assertRegistryCode(t, err, types.ErrCodeAlreadyRevoked)

	var event types.CredentialRevokedEvent
	require.NoError(t, json.Unmarshal(stub.Events[types.EventCredentialRevoked], &event))
	assert.Equal(t, credential.TokenID, event.TokenID)
}

func TestRevokeCredential_NotFound(t *testing.T) {
	contract, stub := setupWithAdmin(t, "admin")

	err := contract.RevokeCredential(newTestContext(stub, "admin"), 99)
	assertRegistryCode(t, err, types.ErrCodeNotFound)
}

func TestReissueAfterRevocation_AssignsFreshTokenID(t *testing.T) {
	contract, stub := setupWithAdmin(t, "admin")
	ctx := newTestContext(stub, "admin")

	first, err := contract.IssueCredential(ctx, "doctor-1", "doctor", "license-hash-1", "", "", 1)
	require.NoError(t, err)
	require.NoError(t, contract.RevokeCredential(ctx, first.TokenID))

	second, err := contract.IssueCredential(ctx, "doctor-1", "doctor", "license-hash-1b", "", "", 1)
	require.NoError(t, err)

	assert.Greater(t, second.TokenID, first.TokenID)

	// The old record survives revocation for auditability.
	old, err := contract.GetCredential(ctx, first.TokenID)
	require.NoError(t, err)
	assert.False(t, old.IsActive)
}

func TestIsValid(t *testing.T) {
	contract, stub := setupWithAdmin(t, "admin")
	ctx := newTestContext(stub, "admin")

	credential, err := contract.IssueCredential(ctx, "doctor-1", "doctor", "license-hash-1", "", "", 1)
	require.NoError(t, err)

	valid, err := contract.IsValid(ctx, credential.TokenID)
	require.NoError(t, err)
	assert.True(t, valid)

	// Advance past expiry: validity is evaluated lazily, nothing is written.
	stub.TxTime = testNow.AddDate(1, 0, 1)
	valid, err = contract.IsValid(ctx, credential.TokenID)
	require.NoError(t, err)
	assert.False(t, valid)

	stored, err := contract.GetCredential(ctx, credential.TokenID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive)

	_, err = contract.IsValid(ctx, 99)
	assertRegistryCode(t, err, types.ErrCodeNotFound)
}

func TestIsValid_RevokedCredential(t *testing.T) {
	contract, stub := setupWithAdmin(t, "admin")
	ctx := newTestContext(stub, "admin")

	credential, err := contract.IssueCredential(ctx, "pharm-1", "pharmacist", "license-hash-1", "", "", 1)
	require.NoError(t, err)
	require.NoError(t, contract.RevokeCredential(ctx, credential.TokenID))

	valid, err := contract.IsValid(ctx, credential.TokenID)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestSetAdmin_RotatesAuthorizerSet(t *testing.T) {
	contract, stub := setupWithAdmin(t, "admin")

	require.NoError(t, contract.SetAdmin(newTestContext(stub, "admin"), "new-admin"))

	// The old admin is out.
	_, err := contract.IssueCredential(newTestContext(stub, "admin"), "doctor-1", "doctor", "license-hash-1", "", "", 1)
	assertRegistryCode(t, err, types.ErrCodeUnauthorized)

	_, err = contract.IssueCredential(newTestContext(stub, "new-admin"), "doctor-1", "doctor", "license-hash-1", "", "", 1)
	require.NoError(t, err)
}

func TestAddAuthorizer_ExtendsSet(t *testing.T) {
	contract, stub := setupWithAdmin(t, "admin")

	require.NoError(t, contract.AddAuthorizer(newTestContext(stub, "admin"), "co-admin"))

	// Both identities now authorize.
	_, err := contract.IssueCredential(newTestContext(stub, "co-admin"), "doctor-1", "doctor", "license-hash-1", "", "", 1)
	require.NoError(t, err)
	_, err = contract.IssueCredential(newTestContext(stub, "admin"), "doctor-2", "doctor", "license-hash-2", "", "", 1)
	require.NoError(t, err)

	err = contract.AddAuthorizer(newTestContext(stub, "outsider"), "another")
	assertRegistryCode(t, err, types.ErrCodeUnauthorized)
}
