package alpha_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zfxlabs/subzero/alpha"
	"github.com/zfxlabs/subzero/cell"
	"github.com/zfxlabs/subzero/config"
	"github.com/zfxlabs/subzero/hail"
	"github.com/zfxlabs/subzero/hash"
	"github.com/zfxlabs/subzero/sleet"
	"github.com/zfxlabs/subzero/state"
)

type memStore struct {
	genesis *state.Block
	blocks  []state.Block
}

func (m *memStore) LoadGenesis() (state.Block, bool, error) {
	if m.genesis == nil {
		return state.Block{}, false, nil
	}
	return *m.genesis, true, nil
}

func (m *memStore) PutBlock(b state.Block) error {
	m.blocks = append(m.blocks, b)
	if b.Height == 0 {
		g := b
		m.genesis = &g
	}
	return nil
}

type fakePeerClient struct {
	responses map[hash.NodeID]hash.Hash
	silent    map[hash.NodeID]bool

	// txVotes/blockVotes let tests control the outcome of QueryTx/QueryBlock
	// per peer; a peer absent from the map votes true.
	txVotes    map[hash.NodeID]bool
	blockVotes map[hash.NodeID]bool
}

func (f *fakePeerClient) QueryLastAccepted(peer hash.NodeID, addr string) (hash.Hash, bool) {
	if f.silent[peer] {
		return hash.Hash{}, false
	}
	h, ok := f.responses[peer]
	return h, ok
}

func (f *fakePeerClient) QueryTx(peer hash.NodeID, addr string, c cell.Cell) (bool, bool) {
	if f.silent[peer] {
		return false, false
	}
	if vote, ok := f.txVotes[peer]; ok {
		return vote, true
	}
	return true, true
}

func (f *fakePeerClient) QueryBlock(peer hash.NodeID, addr string, b state.Block) (bool, bool) {
	if f.silent[peer] {
		return false, false
	}
	if vote, ok := f.blockVotes[peer]; ok {
		return vote, true
	}
	return true, true
}

func newTestEngine(t *testing.T) (*alpha.Engine, []alpha.InitialStaker) {
	t.Helper()
	params := config.Default()
	rng := rand.New(rand.NewSource(1))

	sleetEngine := sleet.NewEngine(cell.EmptyCellIds(), params, rng, nil)
	hailEngine, err := hail.NewEngine(nil, hash.NodeID{}, params, nil)
	require.NoError(t, err)

	e := alpha.NewEngine(hash.NodeID{}, sleetEngine, hailEngine, &memStore{}, params, nil)
	return e, alpha.DefaultInitialStakers()
}

func TestBootstrapAppliesGenesis(t *testing.T) {
	e, stakers := newTestEngine(t)
	require.NoError(t, e.Bootstrap(stakers))

	lastHash, height := e.LastAccepted()
	assert.NotEqual(t, hash.Hash{}, lastHash)
	assert.Equal(t, uint64(0), height)

	st, err := e.State()
	require.NoError(t, err)
	assert.Len(t, st.Validators, 3)
	assert.Equal(t, uint64(3000), st.TotalStakingCapacity)
}

func TestBootstrapRestoresPersistedGenesis(t *testing.T) {
	params := config.Default()
	rng := rand.New(rand.NewSource(1))
	store := &memStore{}
	stakers := alpha.DefaultInitialStakers()

	sleetEngine := sleet.NewEngine(cell.EmptyCellIds(), params, rng, nil)
	hailEngine, err := hail.NewEngine(nil, hash.NodeID{}, params, nil)
	require.NoError(t, err)
	first := alpha.NewEngine(hash.NodeID{}, sleetEngine, hailEngine, store, params, nil)
	require.NoError(t, first.Bootstrap(stakers))
	firstHash, _ := first.LastAccepted()

	require.Len(t, store.blocks, 1)

	sleetEngine2 := sleet.NewEngine(cell.EmptyCellIds(), params, rng, nil)
	hailEngine2, err := hail.NewEngine(nil, hash.NodeID{}, params, nil)
	require.NoError(t, err)
	second := alpha.NewEngine(hash.NodeID{}, sleetEngine2, hailEngine2, store, params, nil)
	require.NoError(t, second.Bootstrap(nil))
	secondHash, _ := second.LastAccepted()

	assert.Equal(t, firstHash, secondHash)
	// Loading an already-persisted genesis must not write it a second time.
	assert.Len(t, store.blocks, 1)
}

func TestLiveNetworkRequiresQuorum(t *testing.T) {
	e, stakers := newTestEngine(t)
	require.NoError(t, e.Bootstrap(stakers))
	lastHash, _ := e.LastAccepted()

	peerA := hash.NodeID{1}
	peerB := hash.NodeID{2}
	peers := map[hash.NodeID]string{peerA: "a", peerB: "b"}

	client := &fakePeerClient{responses: map[hash.NodeID]hash.Hash{
		peerA: lastHash,
		peerB: hash.Sum([]byte("disagreement")),
	}}
	ok, err := e.LiveNetwork(peers, client)
	require.NoError(t, err)
	assert.True(t, ok, "k=2/alpha=1/2 quorum is met by a single agreeing peer")
}

func TestLiveNetworkMissingResponsesDoNotCountAsVotes(t *testing.T) {
	e, stakers := newTestEngine(t)
	require.NoError(t, e.Bootstrap(stakers))

	peerA := hash.NodeID{1}
	peers := map[hash.NodeID]string{peerA: "a"}
	client := &fakePeerClient{silent: map[hash.NodeID]bool{peerA: true}}

	ok, err := e.LiveNetwork(peers, client)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAcceptedBlockRejectsOutOfOrderHeight(t *testing.T) {
	e, stakers := newTestEngine(t)
	require.NoError(t, e.Bootstrap(stakers))

	skip := state.Block{Height: 5, Cells: nil}
	err := e.AcceptedBlock(skip)
	assert.ErrorIs(t, err, alpha.ErrOutOfOrderBlock)
}

func TestAcceptedBlockBeforeBootstrapFails(t *testing.T) {
	e, _ := newTestEngine(t)
	err := e.AcceptedBlock(state.Block{Height: 1})
	assert.ErrorIs(t, err, alpha.ErrNotBootstrapped)
}

func TestAcceptedBlockAdvancesState(t *testing.T) {
	e, stakers := newTestEngine(t)
	require.NoError(t, e.Bootstrap(stakers))
	genesisHash, _ := e.LastAccepted()

	next := state.Block{Predecessor: &genesisHash, Height: 1, Cells: nil}
	require.NoError(t, e.AcceptedBlock(next))

	lastHash, height := e.LastAccepted()
	assert.Equal(t, next.Hash(), lastHash)
	assert.Equal(t, uint64(1), height)
}

func TestBuildGenesisRequiresStakers(t *testing.T) {
	_, err := alpha.BuildGenesis(nil, 0)
	assert.ErrorIs(t, err, alpha.ErrNoInitialStakers)
}

// genesisCells reconstructs BuildGenesis's coinbase cell and every staker's
// stake cell, byte-for-byte (ed25519 signing is deterministic), so a test
// can spend a genesis staker's residue output without reaching into alpha's
// internal genesis construction.
func genesisCells(t *testing.T, stakers []alpha.InitialStaker, params config.Parameters) (coinbase cell.Cell, stakeCells []cell.Cell) {
	t.Helper()
	allocations := make([]cell.Allocation, len(stakers))
	for j, s := range stakers {
		allocations[j] = cell.Allocation{Recipient: s.PublicKeyHash(), Capacity: s.TotalAllocation}
	}
	coinbase = cell.NewCoinbaseOperation(allocations).Cell()

	stakeCells = make([]cell.Cell, len(stakers))
	for i, s := range stakers {
		pkh := s.PublicKeyHash()
		op := cell.NewStakeOperation(coinbase, s.NodeID(), pkh, s.StakedAllocation, s.StakingStart, s.StakingStart+params.MinStakeDuration)
		stakeCell, err := op.Stake(s.PrivateKey(), params.MinStakeDuration)
		require.NoError(t, err)
		stakeCells[i] = stakeCell
	}
	return coinbase, stakeCells
}

// bootstrappedEngine builds an alpha engine identified as the genesis
// stakers' first entry, bootstrapped from the three default stakers, with
// peers pointing at the other two validators - the fixture shared by the
// SubmitCell/ProduceBlock tests below. sleet's conflict graph is seeded with
// every genesis cell's produced outputs, exactly like the applied state, so
// a cell spending one of them is recognized rather than rejected as
// undefined; hail's frontier is seeded with the genesis block, and
// LiveNetwork (with both peers agreeing on genesis) hands the committee to
// sleet and hail, as cmd/node does at startup.
func bootstrappedEngine(t *testing.T) (*alpha.Engine, []alpha.InitialStaker, map[hash.NodeID]string) {
	t.Helper()
	params := config.Default()
	rng := rand.New(rand.NewSource(1))
	stakers := alpha.DefaultInitialStakers()
	selfID := stakers[0].NodeID()

	genesis, err := alpha.BuildGenesis(stakers, params.MinStakeDuration)
	require.NoError(t, err)
	sleetEngine := sleet.NewEngine(alpha.GenesisCellIds(genesis), params, rng, nil)
	hailEngine, err := hail.NewEngine([]state.Block{genesis}, selfID, params, nil)
	require.NoError(t, err)

	e := alpha.NewEngine(selfID, sleetEngine, hailEngine, &memStore{}, params, nil)
	require.NoError(t, e.Bootstrap(stakers))

	peers := map[hash.NodeID]string{
		stakers[1].NodeID(): "peer1",
		stakers[2].NodeID(): "peer2",
	}
	last, _ := e.LastAccepted()
	live, err := e.LiveNetwork(peers, &fakePeerClient{responses: map[hash.NodeID]hash.Hash{
		stakers[1].NodeID(): last,
		stakers[2].NodeID(): last,
	}})
	require.NoError(t, err)
	require.True(t, live)
	return e, stakers, peers
}

// TestSubmitCellAcceptsTransferAndProducesBlock drives the full client-submit
// to block-production path end to end (spec.md's S1 shape, with one real
// validator self-voting alongside its two genesis peers): a transfer cell
// spending a genesis staker's own residue is submitted, queried to
// acceptance, drained into a proposed block, queried to finality, and
// applied - advancing the chain to height 1.
func TestSubmitCellAcceptsTransferAndProducesBlock(t *testing.T) {
	e, stakers, peers := bootstrappedEngine(t)
	params := config.Default()

	_, stakeCells := genesisCells(t, stakers, params)
	stakeCell0 := stakeCells[0]
	pkh0 := stakers[0].PublicKeyHash()
	var recipient cell.PublicKeyHash
	recipient[0] = 0xAA

	xfer := cell.NewTransferOperation(stakeCell0, recipient, pkh0, 500)
	tx, err := xfer.Transfer(stakers[0].PrivateKey())
	require.NoError(t, err)

	client := &fakePeerClient{}
	submitted, err := e.SubmitCell(tx, peers, client)
	require.NoError(t, err)
	assert.Equal(t, tx.Hash(), submitted)

	blockHash, err := e.ProduceBlock(peers, client)
	require.NoError(t, err)
	assert.NotEqual(t, hash.Hash{}, blockHash, "the sole producer for height 1 must finalize a block carrying the accepted transfer")

	last, height := e.LastAccepted()
	assert.Equal(t, blockHash, last)
	assert.Equal(t, uint64(1), height)
}

// TestSubmitCellDuplicateReturnsStableNullAck exercises spec.md's "stable
// null ack": resubmitting an already-known cell must not error, re-insert,
// or disturb the first submission's outcome.
func TestSubmitCellDuplicateReturnsStableNullAck(t *testing.T) {
	e, stakers, peers := bootstrappedEngine(t)
	params := config.Default()

	_, stakeCells := genesisCells(t, stakers, params)
	stakeCell0 := stakeCells[0]
	pkh0 := stakers[0].PublicKeyHash()
	var recipient cell.PublicKeyHash
	recipient[0] = 0xAA

	xfer := cell.NewTransferOperation(stakeCell0, recipient, pkh0, 500)
	tx, err := xfer.Transfer(stakers[0].PrivateKey())
	require.NoError(t, err)

	client := &fakePeerClient{}
	first, err := e.SubmitCell(tx, peers, client)
	require.NoError(t, err)
	assert.Equal(t, tx.Hash(), first)

	second, err := e.SubmitCell(tx, peers, client)
	require.NoError(t, err)
	assert.Equal(t, hash.Hash{}, second, "a duplicate submission returns the zero hash rather than re-inserting")
}

// TestSubmitCellConflictAcceptsOneAndRejectsTheOther exercises spec.md's S2
// shape: two cells spend the same genesis residue. SubmitCell drives each
// to completion synchronously, so by the time the second is submitted the
// first has already been accepted on its own (an uncontested cell needs no
// opposing vote to finalize); inserting a second spender then reopens its
// conflict set, and the second cell's own confidence race goes on to
// supersede the first, rejecting it as a side effect - exactly the
// acceptance/rejection interplay ConflictGraph.AcceptCell and
// DrainAccepted's status filter exist to get right. Only the surviving
// cell's transfer should ever reach State.
func TestSubmitCellConflictAcceptsOneAndRejectsTheOther(t *testing.T) {
	e, stakers, peers := bootstrappedEngine(t)
	params := config.Default()

	_, stakeCells := genesisCells(t, stakers, params)
	stakeCell0 := stakeCells[0]
	pkh0 := stakers[0].PublicKeyHash()
	var recipientA, recipientB cell.PublicKeyHash
	recipientA[0] = 0xAA
	recipientB[0] = 0xBB

	xferA := cell.NewTransferOperation(stakeCell0, recipientA, pkh0, 500)
	txA, err := xferA.Transfer(stakers[0].PrivateKey())
	require.NoError(t, err)

	xferB := cell.NewTransferOperation(stakeCell0, recipientB, pkh0, 400)
	txB, err := xferB.Transfer(stakers[0].PrivateKey())
	require.NoError(t, err)

	client := &fakePeerClient{
		txVotes: map[hash.NodeID]bool{
			stakers[1].NodeID(): true,
			stakers[2].NodeID(): true,
		},
	}

	_, err = e.SubmitCell(txA, peers, client)
	require.NoError(t, err)
	_, err = e.SubmitCell(txB, peers, client)
	require.NoError(t, err)

	blockHash, err := e.ProduceBlock(peers, client)
	require.NoError(t, err)
	assert.NotEqual(t, hash.Hash{}, blockHash, "the superseding cell alone must still finalize a block")

	st, err := e.State()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), st.Height, "the rejected sibling must not also land in the same or a later block")
}
