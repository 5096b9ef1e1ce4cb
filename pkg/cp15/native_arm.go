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

//go:build arm

package cp15

import "fmt"

// NativeBank is the CP15 of the executing core. It is only meaningful at PL1.
type NativeBank struct{}

var _ Bank = NativeBank{}

// Read implements Bank.Read.
//
//go:nosplit
func (NativeBank) Read(r Reg) uint32 {
	switch r.id {
	case idMIDR:
		return readMIDR()
	case idCTR:
		return readCTR()
	case idMPIDR:
		return readMPIDR()
	case idCCSIDR:
		return readCCSIDR()
	case idCLIDR:
		return readCLIDR()
	case idCSSELR:
		return readCSSELR()
	case idSCTLR:
		return readSCTLR()
	case idACTLR:
		return readACTLR()
	case idCPACR:
		return readCPACR()
	case idTTBR0:
		return readTTBR0()
	case idTTBR1:
		return readTTBR1()
	case idTTBCR:
		return readTTBCR()
	case idDACR:
		return readDACR()
	case idDFSR:
		return readDFSR()
	case idIFSR:
		return readIFSR()
	case idDFAR:
		return readDFAR()
	case idIFAR:
		return readIFAR()
	case idPAR:
		return readPAR()
	case idVBAR:
		return readVBAR()
	case idCONTEXTIDR:
		return readCONTEXTIDR()
	case idTPIDRURW:
		return readTPIDRURW()
	case idTPIDRURO:
		return readTPIDRURO()
	case idTPIDRPRW:
		return readTPIDRPRW()
	case idCBAR:
		return readCBAR()
	}
	panic(fmt.Sprintf("cp15: %v is not readable", r))
}

// Write implements Bank.Write.
//
//go:nosplit
func (NativeBank) Write(r Reg, v uint32) {
	switch r.id {
	case idCSSELR:
		writeCSSELR(v)
	case idSCTLR:
		writeSCTLR(v)
	case idACTLR:
		writeACTLR(v)
	case idCPACR:
		writeCPACR(v)
	case idTTBR0:
		writeTTBR0(v)
	case idTTBR1:
		writeTTBR1(v)
	case idTTBCR:
		writeTTBCR(v)
	case idDACR:
		writeDACR(v)
	case idDFSR:
		writeDFSR(v)
	case idIFSR:
		writeIFSR(v)
	case idDFAR:
		writeDFAR(v)
	case idIFAR:
		writeIFAR(v)
	case idICIALLUIS:
		writeICIALLUIS(v)
	case idBPIALLIS:
		writeBPIALLIS(v)
	case idPAR:
		writePAR(v)
	case idICIALLU:
		writeICIALLU(v)
	case idICIMVAU:
		writeICIMVAU(v)
	case idBPIALL:
		writeBPIALL(v)
	case idBPIMVA:
		writeBPIMVA(v)
	case idDCIMVAC:
		writeDCIMVAC(v)
	case idDCISW:
		writeDCISW(v)
	case idDCCMVAC:
		writeDCCMVAC(v)
	case idDCCSW:
		writeDCCSW(v)
	case idDCCMVAU:
		writeDCCMVAU(v)
	case idDCCIMVAC:
		writeDCCIMVAC(v)
	case idDCCISW:
		writeDCCISW(v)
	case idTLBIALLIS:
		writeTLBIALLIS(v)
	case idTLBIMVAIS:
		writeTLBIMVAIS(v)
	case idTLBIALL:
		writeTLBIALL(v)
	case idTLBIMVA:
		writeTLBIMVA(v)
	case idTLBIASID:
		writeTLBIASID(v)
	case idVBAR:
		writeVBAR(v)
	case idCONTEXTIDR:
		writeCONTEXTIDR(v)
	case idTPIDRURW:
		writeTPIDRURW(v)
	case idTPIDRURO:
		writeTPIDRURO(v)
	case idTPIDRPRW:
		writeTPIDRPRW(v)
	default:
		panic(fmt.Sprintf("cp15: %v is not writable", r))
	}
}

// Read64 implements Bank.Read64.
//
//go:nosplit
func (NativeBank) Read64(r Reg64) uint64 {
	switch r.id {
	case idTTBR0Wide:
		return readTTBR0Wide()
	case idTTBR1Wide:
		return readTTBR1Wide()
	case idPARWide:
		return readPARWide()
	}
	panic(fmt.Sprintf("cp15: unknown register %v", r))
}

// Write64 implements Bank.Write64.
//
//go:nosplit
func (NativeBank) Write64(r Reg64, v uint64) {
	switch r.id {
	case idTTBR0Wide:
		writeTTBR0Wide(v)
	case idTTBR1Wide:
		writeTTBR1Wide(v)
	case idPARWide:
		writePARWide(v)
	default:
		panic(fmt.Sprintf("cp15: unknown register %v", r))
	}
}

// Assembly leaves, in native_arm.s.

func readMIDR() uint32
func readCTR() uint32
func readMPIDR() uint32
func readCCSIDR() uint32
func readCLIDR() uint32
func readCSSELR() uint32
func readSCTLR() uint32
func readACTLR() uint32
func readCPACR() uint32
func readTTBR0() uint32
func readTTBR1() uint32
func readTTBCR() uint32
func readDACR() uint32
func readDFSR() uint32
func readIFSR() uint32
func readDFAR() uint32
func readIFAR() uint32
func readPAR() uint32
func readVBAR() uint32
func readCONTEXTIDR() uint32
func readTPIDRURW() uint32
func readTPIDRURO() uint32
func readTPIDRPRW() uint32
func readCBAR() uint32
func writeCSSELR(v uint32)
func writeSCTLR(v uint32)
func writeACTLR(v uint32)
func writeCPACR(v uint32)
func writeTTBR0(v uint32)
func writeTTBR1(v uint32)
func writeTTBCR(v uint32)
func writeDACR(v uint32)
func writeDFSR(v uint32)
func writeIFSR(v uint32)
func writeDFAR(v uint32)
func writeIFAR(v uint32)
func writeICIALLUIS(v uint32)
func writeBPIALLIS(v uint32)
func writePAR(v uint32)
func writeICIALLU(v uint32)
func writeICIMVAU(v uint32)
func writeBPIALL(v uint32)
func writeBPIMVA(v uint32)
func writeDCIMVAC(v uint32)
func writeDCISW(v uint32)
func writeDCCMVAC(v uint32)
func writeDCCSW(v uint32)
func writeDCCMVAU(v uint32)
func writeDCCIMVAC(v uint32)
func writeDCCISW(v uint32)
func writeTLBIALLIS(v uint32)
func writeTLBIMVAIS(v uint32)
func writeTLBIALL(v uint32)
func writeTLBIMVA(v uint32)
func writeTLBIASID(v uint32)
func writeVBAR(v uint32)
func writeCONTEXTIDR(v uint32)
func writeTPIDRURW(v uint32)
func writeTPIDRURO(v uint32)
func writeTPIDRPRW(v uint32)
func readTTBR0Wide() uint64
func readTTBR1Wide() uint64
func readPARWide() uint64
func writeTTBR0Wide(v uint64)
func writeTTBR1Wide(v uint64)
func writePARWide(v uint64)
