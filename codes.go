// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zpl

// Diagnostic codes. This is a closed set: every id produced by the parser
// or validator appears here, and every id here has an explanation in
// diagnosticExplanations.
const (
	// Parser codes.
	CodeParserNoLabels              = "ZPL1001"
	CodeParserInvalidCommand        = "ZPL1002"
	CodeParserUnknownCommand        = "ZPL1003"
	CodeParserMissingTerminator     = "ZPL1004"
	CodeParserMissingFieldSeparator = "ZPL1005"
	CodeParserFieldDataInterrupted  = "ZPL1006"
	CodeParserStrayContent          = "ZPL1007"
	CodeParserNonASCIIArg           = "ZPL1008"

	// Argument-level validator codes.
	CodeArity              = "ZPL1101"
	CodeRequiredMissing    = "ZPL1102"
	CodeRequiredEmpty      = "ZPL1103"
	CodeExpectedInteger    = "ZPL1104"
	CodeExpectedNumeric    = "ZPL1105"
	CodeExpectedChar       = "ZPL1106"
	CodeInvalidEnum        = "ZPL1107"
	CodeOutOfRange         = "ZPL1108"
	CodeStringTooShort     = "ZPL1109"
	CodeStringTooLong      = "ZPL1110"
	CodeRoundingViolation  = "ZPL1111"
	CodeProfileConstraint  = "ZPL1112"
	CodePrinterGate        = "ZPL1113"
	CodeMediaModeUnsupported = "ZPL1403"

	// Command-level constraint codes.
	CodeRequiresCommand     = "ZPL1201"
	CodeIncompatibleCommand = "ZPL1202"
	CodeOrderViolation      = "ZPL1203"
	CodeNote                = "ZPL1204"
	CodeEmptyFieldData      = "ZPL1205"

	// Field-structural codes.
	CodeFieldDataWithoutOrigin          = "ZPL2201"
	CodeEmptyLabel                      = "ZPL2202"
	CodeFieldNotClosed                  = "ZPL2203"
	CodeOrphanedFieldSeparator          = "ZPL2204"
	CodeHostCommandInLabel              = "ZPL2205"
	CodeDuplicateFieldNumber            = "ZPL2301"
	CodePositionOutOfBounds             = "ZPL2302"
	CodeUnknownFont                     = "ZPL2303"
	CodeInvalidHexEscape                = "ZPL2304"
	CodeRedundantState                  = "ZPL2305"
	CodeSerializationWithoutFieldNumber = "ZPL2306"
	CodeGfDataLengthMismatch            = "ZPL2307"
	CodeGfMemoryExceeded                = "ZPL2309"
	CodeMissingExplicitDimensions       = "ZPL2310"
	CodeObjectBoundsOverflow            = "ZPL2311"
	CodeBarcodeInvalidChar              = "ZPL2401"
	CodeBarcodeDataLength               = "ZPL2402"
)
