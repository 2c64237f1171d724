package udp

// sizeHeader is the fixed size in bytes of a UDP header (RFC 768): source
// port, destination port, length and checksum, 2 bytes each.
const sizeHeader = 8
