// Copyright 2018 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cp15

import "strings"

// regID identifies a register to native implementations.
type regID uint8

const (
	idInvalid regID = iota
	idMIDR
	idCTR
	idMPIDR
	idCCSIDR
	idCLIDR
	idCSSELR
	idSCTLR
	idACTLR
	idCPACR
	idTTBR0
	idTTBR1
	idTTBCR
	idDACR
	idDFSR
	idIFSR
	idDFAR
	idIFAR
	idICIALLUIS
	idBPIALLIS
	idPAR
	idICIALLU
	idICIMVAU
	idBPIALL
	idBPIMVA
	idDCIMVAC
	idDCISW
	idDCCMVAC
	idDCCSW
	idDCCMVAU
	idDCCIMVAC
	idDCCISW
	idTLBIALLIS
	idTLBIMVAIS
	idTLBIALL
	idTLBIMVA
	idTLBIASID
	idVBAR
	idCONTEXTIDR
	idTPIDRURW
	idTPIDRURO
	idTPIDRPRW
	idCBAR
	idTTBR0Wide
	idTTBR1Wide
	idPARWide
)

// 32-bit registers and operations.
var (
	MIDR       = Reg{id: idMIDR, Name: "MIDR", Opc1: 0, CRn: 0, CRm: 0, Opc2: 0, Access: ReadOnly}
	CTR        = Reg{id: idCTR, Name: "CTR", Opc1: 0, CRn: 0, CRm: 0, Opc2: 1, Access: ReadOnly}
	MPIDR      = Reg{id: idMPIDR, Name: "MPIDR", Opc1: 0, CRn: 0, CRm: 0, Opc2: 5, Access: ReadOnly}
	CCSIDR     = Reg{id: idCCSIDR, Name: "CCSIDR", Opc1: 1, CRn: 0, CRm: 0, Opc2: 0, Access: ReadOnly}
	CLIDR      = Reg{id: idCLIDR, Name: "CLIDR", Opc1: 1, CRn: 0, CRm: 0, Opc2: 1, Access: ReadOnly}
	CSSELR     = Reg{id: idCSSELR, Name: "CSSELR", Opc1: 2, CRn: 0, CRm: 0, Opc2: 0, Access: ReadWrite}
	SCTLR      = Reg{id: idSCTLR, Name: "SCTLR", Opc1: 0, CRn: 1, CRm: 0, Opc2: 0, Access: ReadWrite}
	ACTLR      = Reg{id: idACTLR, Name: "ACTLR", Opc1: 0, CRn: 1, CRm: 0, Opc2: 1, Access: ReadWrite}
	CPACR      = Reg{id: idCPACR, Name: "CPACR", Opc1: 0, CRn: 1, CRm: 0, Opc2: 2, Access: ReadWrite}
	TTBR0      = Reg{id: idTTBR0, Name: "TTBR0", Opc1: 0, CRn: 2, CRm: 0, Opc2: 0, Access: ReadWrite}
	TTBR1      = Reg{id: idTTBR1, Name: "TTBR1", Opc1: 0, CRn: 2, CRm: 0, Opc2: 1, Access: ReadWrite}
	TTBCR      = Reg{id: idTTBCR, Name: "TTBCR", Opc1: 0, CRn: 2, CRm: 0, Opc2: 2, Access: ReadWrite}
	DACR       = Reg{id: idDACR, Name: "DACR", Opc1: 0, CRn: 3, CRm: 0, Opc2: 0, Access: ReadWrite}
	DFSR       = Reg{id: idDFSR, Name: "DFSR", Opc1: 0, CRn: 5, CRm: 0, Opc2: 0, Access: ReadWrite}
	IFSR       = Reg{id: idIFSR, Name: "IFSR", Opc1: 0, CRn: 5, CRm: 0, Opc2: 1, Access: ReadWrite}
	DFAR       = Reg{id: idDFAR, Name: "DFAR", Opc1: 0, CRn: 6, CRm: 0, Opc2: 0, Access: ReadWrite}
	IFAR       = Reg{id: idIFAR, Name: "IFAR", Opc1: 0, CRn: 6, CRm: 0, Opc2: 2, Access: ReadWrite}
	ICIALLUIS  = Reg{id: idICIALLUIS, Name: "ICIALLUIS", Opc1: 0, CRn: 7, CRm: 1, Opc2: 0, Access: WriteOnly}
	BPIALLIS   = Reg{id: idBPIALLIS, Name: "BPIALLIS", Opc1: 0, CRn: 7, CRm: 1, Opc2: 6, Access: WriteOnly}
	PAR        = Reg{id: idPAR, Name: "PAR", Opc1: 0, CRn: 7, CRm: 4, Opc2: 0, Access: ReadWrite}
	ICIALLU    = Reg{id: idICIALLU, Name: "ICIALLU", Opc1: 0, CRn: 7, CRm: 5, Opc2: 0, Access: WriteOnly}
	ICIMVAU    = Reg{id: idICIMVAU, Name: "ICIMVAU", Opc1: 0, CRn: 7, CRm: 5, Opc2: 1, Access: WriteOnly}
	BPIALL     = Reg{id: idBPIALL, Name: "BPIALL", Opc1: 0, CRn: 7, CRm: 5, Opc2: 6, Access: WriteOnly}
	BPIMVA     = Reg{id: idBPIMVA, Name: "BPIMVA", Opc1: 0, CRn: 7, CRm: 5, Opc2: 7, Access: WriteOnly}
	DCIMVAC    = Reg{id: idDCIMVAC, Name: "DCIMVAC", Opc1: 0, CRn: 7, CRm: 6, Opc2: 1, Access: WriteOnly}
	DCISW      = Reg{id: idDCISW, Name: "DCISW", Opc1: 0, CRn: 7, CRm: 6, Opc2: 2, Access: WriteOnly}
	DCCMVAC    = Reg{id: idDCCMVAC, Name: "DCCMVAC", Opc1: 0, CRn: 7, CRm: 10, Opc2: 1, Access: WriteOnly}
	DCCSW      = Reg{id: idDCCSW, Name: "DCCSW", Opc1: 0, CRn: 7, CRm: 10, Opc2: 2, Access: WriteOnly}
	DCCMVAU    = Reg{id: idDCCMVAU, Name: "DCCMVAU", Opc1: 0, CRn: 7, CRm: 11, Opc2: 1, Access: WriteOnly}
	DCCIMVAC   = Reg{id: idDCCIMVAC, Name: "DCCIMVAC", Opc1: 0, CRn: 7, CRm: 14, Opc2: 1, Access: WriteOnly}
	DCCISW     = Reg{id: idDCCISW, Name: "DCCISW", Opc1: 0, CRn: 7, CRm: 14, Opc2: 2, Access: WriteOnly}
	TLBIALLIS  = Reg{id: idTLBIALLIS, Name: "TLBIALLIS", Opc1: 0, CRn: 8, CRm: 3, Opc2: 0, Access: WriteOnly}
	TLBIMVAIS  = Reg{id: idTLBIMVAIS, Name: "TLBIMVAIS", Opc1: 0, CRn: 8, CRm: 3, Opc2: 1, Access: WriteOnly}
	TLBIALL    = Reg{id: idTLBIALL, Name: "TLBIALL", Opc1: 0, CRn: 8, CRm: 7, Opc2: 0, Access: WriteOnly}
	TLBIMVA    = Reg{id: idTLBIMVA, Name: "TLBIMVA", Opc1: 0, CRn: 8, CRm: 7, Opc2: 1, Access: WriteOnly}
	TLBIASID   = Reg{id: idTLBIASID, Name: "TLBIASID", Opc1: 0, CRn: 8, CRm: 7, Opc2: 2, Access: WriteOnly}
	VBAR       = Reg{id: idVBAR, Name: "VBAR", Opc1: 0, CRn: 12, CRm: 0, Opc2: 0, Access: ReadWrite}
	CONTEXTIDR = Reg{id: idCONTEXTIDR, Name: "CONTEXTIDR", Opc1: 0, CRn: 13, CRm: 0, Opc2: 1, Access: ReadWrite}
	TPIDRURW   = Reg{id: idTPIDRURW, Name: "TPIDRURW", Opc1: 0, CRn: 13, CRm: 0, Opc2: 2, Access: ReadWrite}
	TPIDRURO   = Reg{id: idTPIDRURO, Name: "TPIDRURO", Opc1: 0, CRn: 13, CRm: 0, Opc2: 3, Access: ReadWrite}
	TPIDRPRW   = Reg{id: idTPIDRPRW, Name: "TPIDRPRW", Opc1: 0, CRn: 13, CRm: 0, Opc2: 4, Access: ReadWrite}
	CBAR       = Reg{id: idCBAR, Name: "CBAR", Opc1: 4, CRn: 15, CRm: 0, Opc2: 0, Access: ReadOnly}
)

// 64-bit registers, present with the Large Physical Address Extension.
var (
	TTBR0Wide = Reg64{id: idTTBR0Wide, Name: "TTBR0", Opc1: 0, CRm: 2}
	TTBR1Wide = Reg64{id: idTTBR1Wide, Name: "TTBR1", Opc1: 1, CRm: 2}
	PARWide   = Reg64{id: idPARWide, Name: "PAR", Opc1: 0, CRm: 7}
)

// Registers lists every 32-bit register this package declares.
var Registers = []Reg{
	MIDR, CTR, MPIDR, CCSIDR, CLIDR, CSSELR, SCTLR, ACTLR, CPACR, TTBR0,
	TTBR1, TTBCR, DACR, DFSR, IFSR, DFAR, IFAR, ICIALLUIS, BPIALLIS, PAR,
	ICIALLU, ICIMVAU, BPIALL, BPIMVA, DCIMVAC, DCISW, DCCMVAC, DCCSW,
	DCCMVAU, DCCIMVAC, DCCISW, TLBIALLIS, TLBIMVAIS, TLBIALL, TLBIMVA,
	TLBIASID, VBAR, CONTEXTIDR, TPIDRURW, TPIDRURO, TPIDRPRW, CBAR,
}

// Registers64 lists every 64-bit register this package declares.
var Registers64 = []Reg64{TTBR0Wide, TTBR1Wide, PARWide}

// Lookup returns the 32-bit register with the given name, ignoring case.
func Lookup(name string) (Reg, bool) {
	for _, r := range Registers {
		if strings.EqualFold(r.Name, name) {
			return r, true
		}
	}
	return Reg{}, false
}
