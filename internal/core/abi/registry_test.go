package abi

import (
	"encoding/binary"
	"testing"

	"github.com/ethereum/go-ethereum/rlp"
	logimpl "github.com/xchain/v1/internal/core/infrastructure/log"
	"github.com/xchain/v1/pkg/interfaces/core"
	"github.com/xchain/v1/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistry(logimpl.NewNop())
}

func accountBytes(b byte) []byte {
	out := make([]byte, 32)
	for i := range out {
		out[i] = b
	}
	return out
}

func amountLE(v uint64) []byte {
	out := make([]byte, 16)
	binary.LittleEndian.PutUint64(out, v)
	return out
}

// transferPayloadScale 构造Transfer事件的规范二进制载荷
func transferPayloadScale(from, to []byte, amount uint64) []byte {
	payload := append([]byte{}, from...)
	payload = append(payload, to...)
	payload = append(payload, amountLE(amount)...)
	return payload
}

func transferArgs(from, to []byte, amount uint64) [][]byte {
	return [][]byte{from, to, amountLE(amount), {}}
}

func TestParseDescriptor(t *testing.T) {
	desc, err := ParseDescriptor("Transfer:Struct(from:Account32,to:Account32,amount:Value128)")
	require.NoError(t, err, "描述符解析应成功")
	assert.Equal(t, "Transfer", desc.Name)
	require.Len(t, desc.Root.Fields, 3)
	assert.Equal(t, KindAccount32, desc.Root.Fields[0].Kind)
	assert.Equal(t, "amount", desc.Root.Fields[2].Name)
}

func TestParseDescriptorNested(t *testing.T) {
	desc, err := ParseDescriptor("Outer:Struct(header:Struct(height:Value128,hash:Bytes),body:Bytes)")
	require.NoError(t, err, "嵌套描述符解析应成功")
	flat := desc.FlatFields()
	require.Len(t, flat, 3)
	assert.Equal(t, "height", flat[0].Name)
	assert.Equal(t, "body", flat[2].Name)
}

func TestParseDescriptorInvalid(t *testing.T) {
	cases := []string{
		"",
		"Transfer",
		"Transfer:Struct(from:Account32",
		"Transfer:Struct(from:Unknown)",
		"Transfer:Struct(from:Account32)trailing",
	}
	for _, c := range cases {
		_, err := ParseDescriptor(c)
		assert.Error(t, err, "非法描述符应解析失败: %q", c)
	}
}

func TestCompactRoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 63, 64, 16383, 16384, 1 << 29, 1 << 30, 1 << 40, 1<<63 + 7} {
		encoded := EncodeCompact(v)
		decoded, consumed, err := DecodeCompact(encoded)
		require.NoError(t, err, "紧凑整数解码应成功: %d", v)
		assert.Equal(t, v, decoded)
		assert.Equal(t, len(encoded), consumed)
	}
}

func TestGetInterfaceFallback(t *testing.T) {
	r := newTestRegistry(t)
	chain := types.MustChainID("pdot")
	action := types.MustAction("tran")

	iface, err := r.GetInterface(chain, action)
	require.NoError(t, err, "标准接口应可查询")
	assert.Equal(t, action, iface.Action)

	// 覆盖后优先返回网关专属接口
	override := &core.SFXInterface{
		Action:            action,
		Args:              []core.ArgSpec{{Name: "to", MustVerify: true}},
		PayloadDescriptor: "Transfer:Struct(to:Account32)",
	}
	require.NoError(t, r.RegisterOverride(chain, override))
	iface, err = r.GetInterface(chain, action)
	require.NoError(t, err)
	assert.Len(t, iface.Args, 1)

	// 其他网关不受覆盖影响
	iface, err = r.GetInterface(types.MustChainID("ksma"), action)
	require.NoError(t, err)
	assert.Len(t, iface.Args, 4)

	_, err = r.GetInterface(chain, types.MustAction("nope"))
	assert.ErrorIs(t, err, ErrNoSuchInterface)
}

func TestValidateScaleTransfer(t *testing.T) {
	r := newTestRegistry(t)
	iface, err := r.GetInterface(types.MustChainID("pdot"), types.MustAction("tran"))
	require.NoError(t, err)

	from := accountBytes(0x01)
	to := accountBytes(0x02)
	payload := transferPayloadScale(from, to, 1000)

	err = r.Validate(iface, transferArgs(from, to, 1000), payload, types.CodecScale)
	assert.NoError(t, err, "参数与载荷一致时校验应通过")

	// 金额不一致
	err = r.Validate(iface, transferArgs(from, to, 999), payload, types.CodecScale)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	// 收款人不一致
	err = r.Validate(iface, transferArgs(from, accountBytes(0x03), 1000), payload, types.CodecScale)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	// from为非必验参数，不一致也应通过
	err = r.Validate(iface, transferArgs(accountBytes(0x09), to, 1000), payload, types.CodecScale)
	assert.NoError(t, err, "非必验参数不一致应被容忍")
}

func TestValidateArgumentCount(t *testing.T) {
	r := newTestRegistry(t)
	iface, err := r.GetInterface(types.MustChainID("pdot"), types.MustAction("tran"))
	require.NoError(t, err)

	payload := transferPayloadScale(accountBytes(0x01), accountBytes(0x02), 1)
	err = r.Validate(iface, [][]byte{accountBytes(0x01)}, payload, types.CodecScale)
	assert.ErrorIs(t, err, ErrInvalidArgument, "参数数量不符应拒绝")
}

func TestValidateEmptyRequiredArgument(t *testing.T) {
	r := newTestRegistry(t)
	iface, err := r.GetInterface(types.MustChainID("pdot"), types.MustAction("tran"))
	require.NoError(t, err)

	from := accountBytes(0x01)
	to := accountBytes(0x02)
	payload := transferPayloadScale(from, to, 1)
	args := [][]byte{from, {}, amountLE(1), {}}
	err = r.Validate(iface, args, payload, types.CodecScale)
	assert.ErrorIs(t, err, ErrInvalidArgument, "必验参数为空应拒绝")
}

func TestValidatePayloadBounds(t *testing.T) {
	r := newTestRegistry(t)
	iface, err := r.GetInterface(types.MustChainID("pdot"), types.MustAction("tran"))
	require.NoError(t, err)

	from := accountBytes(0x01)
	to := accountBytes(0x02)
	args := transferArgs(from, to, 1)

	// 载荷不足
	short := transferPayloadScale(from, to, 1)[:40]
	err = r.Validate(iface, args, short, types.CodecScale)
	assert.ErrorIs(t, err, ErrDecodeError)

	// 尾随字节
	long := append(transferPayloadScale(from, to, 1), 0xFF)
	err = r.Validate(iface, args, long, types.CodecScale)
	assert.ErrorIs(t, err, ErrDecodeError)
}

func TestValidateRlpTransfer(t *testing.T) {
	r := newTestRegistry(t)
	iface, err := r.GetInterface(types.MustChainID("eth0"), types.MustAction("tran"))
	require.NoError(t, err)

	fromEvm := make([]byte, 20)
	fromEvm[19] = 0x01
	toEvm := make([]byte, 20)
	toEvm[19] = 0x02
	amount := []byte{0x03, 0xE8} // 1000大端

	payload, err := rlp.EncodeToBytes([][]byte{fromEvm, toEvm, amount})
	require.NoError(t, err)

	args := [][]byte{fromEvm, toEvm, amount, {}}
	err = r.Validate(iface, args, payload, types.CodecRlp)
	assert.NoError(t, err, "RLP载荷与参数一致时校验应通过")

	// 金额不一致
	badArgs := [][]byte{fromEvm, toEvm, {0x03, 0xE9}, {}}
	err = r.Validate(iface, badArgs, payload, types.CodecRlp)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	// 非法RLP载荷
	err = r.Validate(iface, args, []byte{0xC1}, types.CodecRlp)
	assert.ErrorIs(t, err, ErrDecodeError)
}
