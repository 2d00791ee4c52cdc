package merkleproof

import (
	"encoding/hex"
	"sync"

	"github.com/lamassu-labs/trustwrapper/internal/commitment"
	"github.com/lamassu-labs/trustwrapper/internal/model"
)

// Backend is the Merkle-inclusion proof backend (C5 option b). Each Prove
// call appends the commitment's digest as a new leaf of an accumulating
// proof tree and returns an inclusion proof against the tree's current
// root; Verify recomputes the path and checks it reaches the claimed root.
type Backend struct {
	mu     sync.Mutex
	leaves [][32]byte
}

// New returns an empty merkle proof backend.
func New() *Backend { return &Backend{} }

func (b *Backend) Scheme() model.ProofScheme { return model.ProofSchemeMerkle }

// Prove appends c.Digest as a new leaf and proves its inclusion.
func (b *Backend) Prove(in commitment.CommitInput, c model.Commitment) (model.Proof, error) {
	b.mu.Lock()
	b.leaves = append(b.leaves, c.Digest)
	leaves := append([][32]byte(nil), b.leaves...)
	leafIndex := len(leaves) - 1
	b.mu.Unlock()

	tree, err := BuildTree(leaves)
	if err != nil {
		return model.Proof{}, err
	}
	proof, err := tree.GenerateProof(leafIndex)
	if err != nil {
		return model.Proof{}, err
	}

	root := tree.Root()
	return model.Proof{
		Scheme:     model.ProofSchemeMerkle,
		Blob:       encodeProof(proof),
		Commitment: c,
		PublicInputs: map[string]interface{}{
			"root":       hex.EncodeToString(root[:]),
			"leaf_index": leafIndex,
			"tree_size":  len(leaves),
		},
	}, nil
}

// Verify decodes the inclusion proof from the blob and checks it against
// the root recorded in PublicInputs.
func (b *Backend) Verify(p model.Proof) (bool, error) {
	proof, root, err := decodeProof(p)
	if err != nil {
		return false, err
	}
	return VerifyProof(p.Commitment.Digest, proof, root), nil
}

// encodeProof serializes an InclusionProof to a compact binary blob:
// leaf_index(4) | path_len(4) | (position(1) | hash(32)) * path_len.
func encodeProof(p *InclusionProof) []byte {
	buf := make([]byte, 0, 8+len(p.Path)*33)
	buf = append(buf, be32(uint32(p.LeafIndex))...)
	buf = append(buf, be32(uint32(len(p.Path)))...)
	for _, node := range p.Path {
		if node.Position == Left {
			buf = append(buf, 0)
		} else {
			buf = append(buf, 1)
		}
		buf = append(buf, node.Hash[:]...)
	}
	return buf
}

func decodeProof(p model.Proof) (*InclusionProof, [32]byte, error) {
	var root [32]byte
	rootHex, _ := p.PublicInputs["root"].(string)
	rootBytes, err := hex.DecodeString(rootHex)
	if err != nil || len(rootBytes) != 32 {
		return nil, root, commitment.ErrVerifyFailed
	}
	copy(root[:], rootBytes)

	blob := p.Blob
	if len(blob) < 8 {
		return nil, root, commitment.ErrVerifyFailed
	}
	leafIndex := int(be32ToU32(blob[0:4]))
	pathLen := int(be32ToU32(blob[4:8]))
	offset := 8
	path := make([]ProofNode, 0, pathLen)
	for i := 0; i < pathLen; i++ {
		if offset+33 > len(blob) {
			return nil, root, commitment.ErrVerifyFailed
		}
		pos := Right
		if blob[offset] == 0 {
			pos = Left
		}
		var h [32]byte
		copy(h[:], blob[offset+1:offset+33])
		path = append(path, ProofNode{Hash: h, Position: pos})
		offset += 33
	}

	return &InclusionProof{LeafIndex: leafIndex, Root: root, Path: path}, root, nil
}

func be32(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func be32ToU32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
