package abi

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/xchain/v1/pkg/interfaces/core"
	"github.com/xchain/v1/pkg/interfaces/infrastructure/log"
	"github.com/xchain/v1/pkg/types"
)

// fieldCodec 字段编解码器，按目标链编码格式选择
type fieldCodec interface {
	Decode(desc *Descriptor, payload []byte) (map[string][]byte, error)
	Canonicalize(kind FieldKind, arg []byte) ([]byte, error)
}

// Registry 副作用ABI注册表，实现core.AbiRegistry接口
type Registry struct {
	mu        sync.RWMutex
	standard  map[types.Action]*core.SFXInterface
	overrides map[string]*core.SFXInterface // key: chainID+action
	parsed    map[string]*Descriptor        // 描述符解析缓存
	logger    log.Logger
}

// NewRegistry 创建注册表并装载标准接口
func NewRegistry(logger log.Logger) *Registry {
	r := &Registry{
		standard:  make(map[types.Action]*core.SFXInterface),
		overrides: make(map[string]*core.SFXInterface),
		parsed:    make(map[string]*Descriptor),
		logger:    logger,
	}
	for _, iface := range standardInterfaces() {
		r.standard[iface.Action] = iface
	}
	return r
}

// standardInterfaces 内置的标准副作用接口
func standardInterfaces() []*core.SFXInterface {
	return []*core.SFXInterface{
		{
			Action: types.MustAction("tran"),
			Args: []core.ArgSpec{
				{Name: "from", MustVerify: false},
				{Name: "to", MustVerify: true},
				{Name: "amount", MustVerify: true},
				{Name: "insurance", MustVerify: false},
			},
			PayloadDescriptor: "Transfer:Struct(from:Account32,to:Account32,amount:Value128)",
		},
		{
			Action: types.MustAction("tass"),
			Args: []core.ArgSpec{
				{Name: "asset_id", MustVerify: true},
				{Name: "from", MustVerify: false},
				{Name: "to", MustVerify: true},
				{Name: "amount", MustVerify: true},
				{Name: "insurance", MustVerify: false},
			},
			PayloadDescriptor: "TransferAsset:Struct(asset_id:Value128,from:Account32,to:Account32,amount:Value128)",
		},
		{
			Action: types.MustAction("swap"),
			Args: []core.ArgSpec{
				{Name: "caller", MustVerify: false},
				{Name: "to", MustVerify: true},
				{Name: "amount_from", MustVerify: true},
				{Name: "amount_to", MustVerify: true},
				{Name: "asset_from", MustVerify: false},
				{Name: "asset_to", MustVerify: false},
				{Name: "insurance", MustVerify: false},
			},
			PayloadDescriptor: "Swap:Struct(caller:Account32,to:Account32,amount_from:Value128,amount_to:Value128,asset_from:Bytes,asset_to:Bytes)",
		},
		{
			Action: types.MustAction("aliq"),
			Args: []core.ArgSpec{
				{Name: "caller", MustVerify: false},
				{Name: "to", MustVerify: true},
				{Name: "asset_left", MustVerify: false},
				{Name: "asset_right", MustVerify: false},
				{Name: "liquidity_token", MustVerify: false},
				{Name: "amount_left", MustVerify: true},
				{Name: "amount_right", MustVerify: true},
				{Name: "amount_liquidity_token", MustVerify: false},
				{Name: "insurance", MustVerify: false},
			},
			PayloadDescriptor: "AddLiquidity:Struct(caller:Account32,to:Account32,asset_left:Bytes,asset_right:Bytes,liquidity_token:Bytes,amount_left:Value128,amount_right:Value128,amount_liquidity_token:Value128)",
		},
		{
			Action: types.MustAction("cevm"),
			Args: []core.ArgSpec{
				{Name: "source", MustVerify: false},
				{Name: "target", MustVerify: true},
				{Name: "value", MustVerify: true},
				{Name: "input", MustVerify: false},
				{Name: "gas_limit", MustVerify: false},
				{Name: "max_fee_per_gas", MustVerify: false},
			},
			PayloadDescriptor: "CallEvm:Log(source:Account32,target:Account32,value:Value256,input:Bytes)",
		},
		{
			Action: types.MustAction("wasm"),
			Args: []core.ArgSpec{
				{Name: "caller", MustVerify: false},
				{Name: "dest", MustVerify: true},
				{Name: "value", MustVerify: true},
				{Name: "data", MustVerify: false},
				{Name: "gas_limit", MustVerify: false},
			},
			PayloadDescriptor: "CallWasm:Struct(caller:Account32,dest:Account32,value:Value128,data:Bytes)",
		},
	}
}

// overrideKey 网关覆盖索引键
func overrideKey(chain types.ChainID, action types.Action) string {
	return chain.String() + "/" + action.String()
}

// GetInterface 查询接口声明，网关覆盖优先于标准接口
func (r *Registry) GetInterface(chain types.ChainID, action types.Action) (*core.SFXInterface, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if iface, ok := r.overrides[overrideKey(chain, action)]; ok {
		return iface, nil
	}
	if iface, ok := r.standard[action]; ok {
		return iface, nil
	}
	return nil, fmt.Errorf("%w: chain=%s action=%s", ErrNoSuchInterface, chain, action)
}

// RegisterOverride 为指定网关注册覆盖接口
func (r *Registry) RegisterOverride(chain types.ChainID, iface *core.SFXInterface) error {
	if iface == nil {
		return fmt.Errorf("%w: 接口声明为空", ErrInvalidArgument)
	}
	if _, err := ParseDescriptor(iface.PayloadDescriptor); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[overrideKey(chain, iface.Action)] = iface
	r.logger.Infof("注册网关覆盖接口: chain=%s action=%s", chain, iface.Action)
	return nil
}

// descriptorFor 返回已解析的描述符，带缓存
func (r *Registry) descriptorFor(iface *core.SFXInterface) (*Descriptor, error) {
	r.mu.RLock()
	desc, ok := r.parsed[iface.PayloadDescriptor]
	r.mu.RUnlock()
	if ok {
		return desc, nil
	}

	desc, err := ParseDescriptor(iface.PayloadDescriptor)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.parsed[iface.PayloadDescriptor] = desc
	r.mu.Unlock()
	return desc, nil
}

// Validate 按声明的描述符解析载荷，并比对所有must_verify参数
func (r *Registry) Validate(iface *core.SFXInterface, args [][]byte, payload []byte, codec types.Codec) error {
	if len(args) != len(iface.Args) {
		return fmt.Errorf("%w: 参数数量%d与声明%d不符", ErrInvalidArgument, len(args), len(iface.Args))
	}
	for i, spec := range iface.Args {
		if spec.MustVerify && len(args[i]) == 0 {
			return fmt.Errorf("%w: 必验参数%s为空", ErrInvalidArgument, spec.Name)
		}
	}

	desc, err := r.descriptorFor(iface)
	if err != nil {
		return err
	}
	fc, err := codecFor(codec)
	if err != nil {
		return err
	}
	fields, err := fc.Decode(desc, payload)
	if err != nil {
		return err
	}

	kinds := make(map[string]FieldKind)
	for _, field := range desc.FlatFields() {
		kinds[field.Name] = field.Kind
	}
	for i, spec := range iface.Args {
		if !spec.MustVerify {
			continue
		}
		decoded, ok := fields[spec.Name]
		if !ok {
			return fmt.Errorf("%w: 载荷缺少必验字段%s", ErrInvalidArgument, spec.Name)
		}
		canonical, err := fc.Canonicalize(kinds[spec.Name], args[i])
		if err != nil {
			return err
		}
		if !bytes.Equal(canonical, decoded) {
			return fmt.Errorf("%w: 字段%s与请求参数不一致", ErrInvalidArgument, spec.Name)
		}
	}
	return nil
}

// codecFor 按编码格式选择字段编解码器
func codecFor(codec types.Codec) (fieldCodec, error) {
	switch codec {
	case types.CodecScale:
		return scaleCodec{}, nil
	case types.CodecRlp:
		return rlpCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: 未知编码格式%s", ErrDecodeError, codec)
	}
}
