package portal

import (
	"context"
	"testing"

	portalconfig "github.com/xchain/v1/internal/config/portal"
	logimpl "github.com/xchain/v1/internal/core/infrastructure/log"
	"github.com/xchain/v1/internal/core/infrastructure/storage/memory"
	"github.com/xchain/v1/pkg/interfaces/core"
	"github.com/xchain/v1/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPortal(t *testing.T) *Portal {
	t.Helper()
	p, err := New(memory.New(), portalconfig.New(nil), logimpl.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

// buildProof 构造单层默克尔证明：root = H(H(event) || sibling)
func buildProof(event, sibling []byte) ([]byte, [][]byte) {
	leaf := hashNode(event)
	root := hashNode(append(leaf, sibling...))
	return root, [][]byte{sibling}
}

func TestLightClientNotInitialized(t *testing.T) {
	ctx := context.Background()
	p := newTestPortal(t)
	chain := types.MustChainID("pdot")
	require.NoError(t, p.RegisterGateway(ctx, chain, types.VendorPolkadot))

	_, err := p.LatestFinalizedHeight(ctx, chain)
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = p.CurrentEpoch(ctx, chain)
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = p.VerifyEventInclusion(ctx, chain, core.InclusionProof{Height: 1}, types.SpeedModeFast)
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestPortalUnknownGateway(t *testing.T) {
	ctx := context.Background()
	p := newTestPortal(t)
	_, err := p.LatestFinalizedHeight(ctx, types.MustChainID("none"))
	assert.ErrorIs(t, err, ErrUnknownGateway)
}

func TestSubmitHeaderAndHeights(t *testing.T) {
	ctx := context.Background()
	p := newTestPortal(t)
	chain := types.MustChainID("pdot")
	require.NoError(t, p.RegisterGateway(ctx, chain, types.VendorPolkadot))

	lc, err := p.Client(chain)
	require.NoError(t, err)
	require.NoError(t, lc.SubmitHeader(ctx, 10, []byte("root10"), []byte("raw10"), true))
	require.NoError(t, lc.SubmitHeader(ctx, 12, []byte("root12"), []byte("raw12"), false))

	finalized, err := p.LatestFinalizedHeight(ctx, chain)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), finalized)

	updated, err := p.LatestUpdatedHeight(ctx, chain)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), updated)

	raw, err := p.LatestFinalizedHeader(ctx, chain)
	require.NoError(t, err)
	assert.Equal(t, []byte("raw10"), raw)

	// 高度回退应拒绝
	err = lc.SubmitHeader(ctx, 11, []byte("r"), []byte("r"), false)
	assert.Error(t, err)
}

func TestVerifyEventInclusion(t *testing.T) {
	ctx := context.Background()
	p := newTestPortal(t)
	chain := types.MustChainID("pdot")
	require.NoError(t, p.RegisterGateway(ctx, chain, types.VendorPolkadot))
	lc, err := p.Client(chain)
	require.NoError(t, err)

	event := []byte("transfer-event")
	root, path := buildProof(event, []byte("sibling"))
	require.NoError(t, lc.SubmitHeader(ctx, 100, root, []byte("raw100"), true))
	// Polkadot厂商Finalized档深度为2
	require.NoError(t, lc.SubmitHeader(ctx, 102, []byte("root102"), []byte("raw102"), true))

	proof := core.InclusionProof{Event: event, Height: 100, Proof: path}

	decoded, err := p.VerifyEventInclusion(ctx, chain, proof, types.SpeedModeFinalized)
	require.NoError(t, err, "深度足够时校验应通过")
	assert.Equal(t, event, decoded)

	// 重复校验走缓存，结果一致
	decoded, err = p.VerifyEventInclusion(ctx, chain, proof, types.SpeedModeFinalized)
	require.NoError(t, err)
	assert.Equal(t, event, decoded)

	// 证明被篡改
	bad := core.InclusionProof{Event: []byte("forged"), Height: 100, Proof: path}
	_, err = p.VerifyEventInclusion(ctx, chain, bad, types.SpeedModeFast)
	assert.ErrorIs(t, err, ErrInclusionFailed)
}

func TestVerifyEventInclusionDepth(t *testing.T) {
	ctx := context.Background()
	p := newTestPortal(t)
	chain := types.MustChainID("pdot")
	require.NoError(t, p.RegisterGateway(ctx, chain, types.VendorPolkadot))
	lc, err := p.Client(chain)
	require.NoError(t, err)

	event := []byte("ev")
	root, path := buildProof(event, []byte("s"))
	require.NoError(t, lc.SubmitHeader(ctx, 100, root, []byte("raw"), true))

	proof := core.InclusionProof{Event: event, Height: 100, Proof: path}

	// Fast档无需额外深度
	_, err = p.VerifyEventInclusion(ctx, chain, proof, types.SpeedModeFast)
	assert.NoError(t, err)

	// Finalized档要求2个确认，当前深度为0；
	// Fast档的缓存命中不得替更高档位放行
	_, err = p.VerifyEventInclusion(ctx, chain, proof, types.SpeedModeFinalized)
	assert.ErrorIs(t, err, ErrHeightBelowOffset)

	// 深度补足后Finalized档放行
	require.NoError(t, lc.SubmitHeader(ctx, 102, []byte("root102"), []byte("raw102"), true))
	decoded, err := p.VerifyEventInclusion(ctx, chain, proof, types.SpeedModeFinalized)
	require.NoError(t, err)
	assert.Equal(t, event, decoded)
}

func TestCurrentEpoch(t *testing.T) {
	ctx := context.Background()
	p := newTestPortal(t)
	chain := types.MustChainID("eth0")
	require.NoError(t, p.RegisterGateway(ctx, chain, types.VendorEthereum))
	lc, err := p.Client(chain)
	require.NoError(t, err)

	// 以太坊epoch长度为32
	require.NoError(t, lc.SubmitHeader(ctx, 96, []byte("r"), []byte("r"), true))
	epoch, err := p.CurrentEpoch(ctx, chain)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), epoch)
}

func TestLightClientStateRecovery(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	config := portalconfig.New(nil)

	p1, err := New(store, config, logimpl.NewNop())
	require.NoError(t, err)
	chain := types.MustChainID("pdot")
	require.NoError(t, p1.RegisterGateway(ctx, chain, types.VendorPolkadot))
	lc, err := p1.Client(chain)
	require.NoError(t, err)
	require.NoError(t, lc.SubmitHeader(ctx, 50, []byte("r"), []byte("raw"), true))
	require.NoError(t, p1.Close())

	// 基于同一存储重建，状态应恢复
	p2, err := New(store, config, logimpl.NewNop())
	require.NoError(t, err)
	defer func() { _ = p2.Close() }()
	require.NoError(t, p2.RegisterGateway(ctx, chain, types.VendorPolkadot))
	height, err := p2.LatestFinalizedHeight(ctx, chain)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), height)
}
