// internal/status/encode.go
package status

import "github.com/tamzrod/buttonfetch/internal/link"

// Encode converts a Snapshot into a fixed status block.
// No IO. No side effects.
func Encode(s Snapshot) []uint16 {
	regs := make([]uint16, SlotsPerDevice)

	regs[SlotHealthCode] = uint16(s.Health)
	regs[SlotLastErrorCode] = s.LastErrorCode
	regs[SlotSecondsInError] = s.SecondsInError
	regs[SlotLinkState] = uint16(linkState(s.Link.State))
	regs[SlotSocketsInUse] = uint16(s.Network.InUse)

	return regs
}

func linkState(name string) link.State {
	for st := link.StateIdle; st <= link.StateAssociated; st++ {
		if st.String() == name {
			return st
		}
	}
	return link.StateIdle
}
