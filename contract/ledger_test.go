package contract

import (
	"crypto/x509"
	"fmt"
	"strings"
	"testing"
	"time"

	"vaxtrace/model"

	"github.com/hyperledger/fabric-chaincode-go/pkg/cid"
	"github.com/hyperledger/fabric-chaincode-go/shimtest"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/timestamppb"
)

const (
	adminID        = "x509::CN=admin,OU=admin::CN=ca.health.example.com"
	manufacturerID = "x509::CN=plant-1,OU=client::CN=ca.pharma.example.com"
	distributorID  = "x509::CN=coldlink,OU=client::CN=ca.logistics.example.com"
	clinicID       = "x509::CN=clinic-north,OU=client::CN=ca.health.example.com"
	otherClinicID  = "x509::CN=clinic-south,OU=client::CN=ca.health.example.com"
	regulatorID    = "x509::CN=inspector,OU=client::CN=ca.agency.example.com"
	oracleID       = "x509::CN=sensor-gw,OU=client::CN=ca.logistics.example.com"
	strangerID     = "x509::CN=nobody,OU=client::CN=ca.example.com"
)

var (
	baseTime = time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)
	testHash = "0x" + strings.Repeat("ab", 32)
)

// fakeIdentity satisfies cid.ClientIdentity with a fixed id.
type fakeIdentity struct {
	id    string
	mspID string
}

var _ cid.ClientIdentity = (*fakeIdentity)(nil)

func (f *fakeIdentity) GetID() (string, error)    { return f.id, nil }
func (f *fakeIdentity) GetMSPID() (string, error) { return f.mspID, nil }
func (f *fakeIdentity) GetAttributeValue(string) (string, bool, error) {
	return "", false, nil
}
func (f *fakeIdentity) AssertAttributeValue(name, _ string) error {
	return fmt.Errorf("attribute '%s' not present", name)
}
func (f *fakeIdentity) GetX509Certificate() (*x509.Certificate, error) { return nil, nil }

type capturedEvent struct {
	name    string
	payload []byte
}

// testLedger drives both contracts against an in-memory stub, one transaction per
// call, with a controllable clock.
type testLedger struct {
	t        *testing.T
	stub     *shimtest.MockStub
	now      time.Time
	txCount  int
	events   []capturedEvent // every event, in order
	txEvents []capturedEvent // events of the last transaction
	registry *VaccineRegistryContract
	token    *BatchTokenContract
}

func newTestLedger(t *testing.T) *testLedger {
	t.Helper()
	return &testLedger{
		t:        t,
		stub:     shimtest.NewMockStub("vaxtrace", nil),
		now:      baseTime,
		registry: &VaccineRegistryContract{},
		token:    &BatchTokenContract{},
	}
}

// newProvisionedLedger bootstraps an admin, wires the registry's MINTER grant and
// hands out one role per test principal.
func newProvisionedLedger(t *testing.T) *testLedger {
	t.Helper()
	l := newTestLedger(t)
	require.NoError(t, l.as(adminID, l.registry.BootstrapLedger))
	require.NoError(t, l.as(adminID, l.registry.WireRegistryMinter))
	grants := []struct{ role, principal string }{
		{"MANUFACTURER", manufacturerID},
		{"DISTRIBUTOR", distributorID},
		{"CLINIC", clinicID},
		{"CLINIC", otherClinicID},
		{"REGULATOR", regulatorID},
		{"ORACLE_UPDATER", oracleID},
	}
	for _, g := range grants {
		g := g
		require.NoError(t, l.as(adminID, func(ctx contractapi.TransactionContextInterface) error {
			return l.registry.GrantRole(ctx, g.role, g.principal)
		}))
	}
	return l
}

// as runs fn as a single transaction submitted by principal.
func (l *testLedger) as(principal string, fn func(ctx contractapi.TransactionContextInterface) error) error {
	l.t.Helper()
	l.txCount++
	txID := fmt.Sprintf("tx-%04d", l.txCount)
	l.stub.MockTransactionStart(txID)
	l.stub.TxTimestamp = timestamppb.New(l.now)

	ctx := new(contractapi.TransactionContext)
	ctx.SetStub(l.stub)
	ctx.SetClientIdentity(&fakeIdentity{id: principal, mspID: "HealthMSP"})

	err := fn(ctx)
	l.stub.MockTransactionEnd(txID)
	l.drainEvents()
	return err
}

func (l *testLedger) drainEvents() {
	l.txEvents = nil
	for {
		select {
		case ev := <-l.stub.ChaincodeEventsChannel:
			captured := capturedEvent{name: ev.EventName, payload: ev.Payload}
			l.txEvents = append(l.txEvents, captured)
			l.events = append(l.events, captured)
		default:
			return
		}
	}
}

// onToken adapts a (ctx, tokenID) operation to as.
func (l *testLedger) onToken(principal string, op func(contractapi.TransactionContextInterface, uint64) error, tokenID uint64) error {
	return l.as(principal, func(ctx contractapi.TransactionContextInterface) error {
		return op(ctx, tokenID)
	})
}

func (l *testLedger) expiryIn(d time.Duration) uint64 {
	return uint64(l.now.Add(d).Unix())
}

func (l *testLedger) mintBatch(lot string, expiry uint64) (uint64, error) {
	var tokenID uint64
	err := l.as(manufacturerID, func(ctx contractapi.TransactionContextInterface) error {
		var err error
		tokenID, err = l.registry.MintBatch(ctx, lot, expiry, 20, 80, testHash, "Plant-1")
		return err
	})
	return tokenID, err
}

// mustMint registers a batch for lot expiring in 90 days.
func (l *testLedger) mustMint(lot string) uint64 {
	l.t.Helper()
	tokenID, err := l.mintBatch(lot, l.expiryIn(90*24*time.Hour))
	require.NoError(l.t, err)
	return tokenID
}

// mustReachClinic mints a batch and walks it to AT_CLINIC held by clinicID.
func (l *testLedger) mustReachClinic(lot string, expiry uint64) uint64 {
	l.t.Helper()
	tokenID, err := l.mintBatch(lot, expiry)
	require.NoError(l.t, err)
	require.NoError(l.t, l.onToken(distributorID, l.registry.TransferToDistributor, tokenID))
	require.NoError(l.t, l.onToken(clinicID, l.registry.TransferToClinic, tokenID))
	return tokenID
}

func (l *testLedger) report(tokenID uint64, reading int32) error {
	return l.as(oracleID, func(ctx contractapi.TransactionContextInterface) error {
		return l.registry.ReportTemperature(ctx, tokenID, reading)
	})
}

func (l *testLedger) recall(principal string, tokenID uint64, reason string) error {
	return l.as(principal, func(ctx contractapi.TransactionContextInterface) error {
		return l.registry.Recall(ctx, tokenID, reason)
	})
}

func (l *testLedger) details(tokenID uint64) *model.BatchDetails {
	l.t.Helper()
	var details *model.BatchDetails
	require.NoError(l.t, l.as(strangerID, func(ctx contractapi.TransactionContextInterface) error {
		var err error
		details, err = l.registry.GetBatch(ctx, tokenID)
		return err
	}))
	return details
}

func (l *testLedger) auditTrail(tokenID uint64) []model.AuditEvent {
	l.t.Helper()
	var trail []model.AuditEvent
	require.NoError(l.t, l.as(regulatorID, func(ctx contractapi.TransactionContextInterface) error {
		var err error
		trail, err = l.registry.GetBatchAuditTrail(ctx, tokenID)
		return err
	}))
	return trail
}

// snapshot copies world state so a failed call can be shown to change nothing.
func (l *testLedger) snapshot() map[string][]byte {
	out := make(map[string][]byte, len(l.stub.State))
	for k, v := range l.stub.State {
		out[k] = append([]byte(nil), v...)
	}
	return out
}
